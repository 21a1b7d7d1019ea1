package websocket

import "github.com/rs/zerolog/log"

// topicMessage is a broadcast addressed to one topic's subscribers.
type topicMessage struct {
	topic   string
	message []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
// The client and subscription maps belong to the Run goroutine alone;
// every mutation, including topic broadcasts, goes through its channels.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Inbound messages for global broadcast.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Topic-addressed broadcasts, delivered by the Run loop.
	broadcastTo chan topicMessage

	// A map of topic names to the set of clients subscribed to each.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:     make(chan []byte),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		broadcastTo:   make(chan topicMessage),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Int("total_clients", len(h.clients)).Msg("Client connected")
			if client.Topic != "" {
				h.addSubscription(client, client.Topic)
			}
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.removeSubscription(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
					h.removeSubscription(client)
				}
			}
		case tm := <-h.broadcastTo:
			h.deliverTo(tm.topic, tm.message)
		}
	}
}

// BroadcastTo sends a message to all clients subscribed to a topic. Safe
// to call from any goroutine; delivery happens on the Run loop.
func (h *Hub) BroadcastTo(topic string, message []byte) {
	h.broadcastTo <- topicMessage{topic: topic, message: message}
}

// deliverTo fans a message out to a topic's subscribers. Run loop only.
func (h *Hub) deliverTo(topic string, message []byte) {
	if subs, ok := h.subscriptions[topic]; ok {
		for client := range subs {
			select {
			case client.Send <- message:
			default:
				close(client.Send)
				delete(h.clients, client)
				delete(h.subscriptions[topic], client)
			}
		}
	}
}

func (h *Hub) addSubscription(client *Client, topic string) {
	if h.subscriptions[topic] == nil {
		h.subscriptions[topic] = make(map[*Client]bool)
	}
	h.subscriptions[topic][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for topic, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, topic)
			}
		}
	}
}
