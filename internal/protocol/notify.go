package protocol

import "encoding/json"

// Notification is an informational broadcast to every connected client.
type Notification interface {
	Type() string
}

// ChatMessage relays a player's chat line.
type ChatMessage struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Text       string `json:"text"`
}

// PlayerDied announces a starvation reset.
type PlayerDied struct {
	PlayerID string `json:"playerId"`
}

// TechAdvance announces a new tech level.
type TechAdvance struct {
	Level int    `json:"level"`
	Name  string `json:"name"`
}

// MayorElected announces a new human mayor.
type MayorElected struct {
	Name string `json:"name"`
}

func (ChatMessage) Type() string  { return "chat_message" }
func (PlayerDied) Type() string   { return "player_died" }
func (TechAdvance) Type() string  { return "tech_advance" }
func (MayorElected) Type() string { return "mayor_elected" }

type outbound struct {
	Type string       `json:"type"`
	Data Notification `json:"data"`
}

// Encode renders a notification as {"type": ..., "data": ...}.
func Encode(n Notification) ([]byte, error) {
	return json.Marshal(outbound{Type: n.Type(), Data: n})
}

// Broadcaster delivers notifications. Implementations must not block the
// caller, which is the simulation loop.
type Broadcaster interface {
	Broadcast(n Notification)
}

//go:generate mockgen -destination=./mocks/broadcaster_mock.go -package=mocks . Broadcaster

// Broadcasters fans a notification out to several sinks in order.
type Broadcasters []Broadcaster

// Broadcast implements Broadcaster.
func (bs Broadcasters) Broadcast(n Notification) {
	for _, b := range bs {
		if b != nil {
			b.Broadcast(n)
		}
	}
}

// Discard drops every notification.
type Discard struct{}

// Broadcast implements Broadcaster.
func (Discard) Broadcast(Notification) {}
