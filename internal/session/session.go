// Package session holds the client-side chat conversation state: an
// append-only message list, a single in-flight send flag, and the active
// NFT descriptor for the session.
package session

import (
	"encoding/json"
	"fmt"

	"github.com/mintchat/mintchat/internal/nft"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn. Role is immutable once created and
// Content is never mutated after append; the only sanctioned update to a
// past message is AttachMintHash setting the descriptor's Hash.
type Message struct {
	Role    string          `json:"role"`
	Content string          `json:"content"`
	NFT     *nft.Descriptor `json:"nft,omitempty"`
}

// ErrorReply is the fixed assistant message appended when a send fails.
const ErrorReply = "Sorry, something went wrong reaching the server. Please try again."

// Session is the chat state machine: idle → sending → idle, with at most
// one send in flight. It is not safe for concurrent use; the interface
// layer drives it from a single event loop.
type Session struct {
	messages []Message
	inFlight bool
	nft      nft.Descriptor
}

// New creates an empty session.
func New() *Session {
	return &Session{}
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *Session) Len() int { return len(s.messages) }

// NFT returns the session's active descriptor.
func (s *Session) NFT() nft.Descriptor { return s.nft }

// SetNFT replaces the session's active descriptor.
func (s *Session) SetNFT(d nft.Descriptor) { s.nft = d }

// InFlight reports whether a send is currently in progress.
func (s *Session) InFlight() bool { return s.inFlight }

// Begin marks a send as in flight. It returns false, without changing
// state, when another send is already in progress.
func (s *Session) Begin() bool {
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

// End marks the in-flight send as finished.
func (s *Session) End() { s.inFlight = false }

// Append adds a message to the conversation and returns its index.
func (s *Session) Append(role, content string) int {
	s.messages = append(s.messages, Message{Role: role, Content: content})
	return len(s.messages) - 1
}

// AppendWithNFT adds a message carrying a descriptor snapshot.
func (s *Session) AppendWithNFT(role, content string, d nft.Descriptor) int {
	s.messages = append(s.messages, Message{Role: role, Content: content, NFT: &d})
	return len(s.messages) - 1
}

// AppendError adds the fixed error reply after a failed send.
func (s *Session) AppendError() int {
	return s.Append(RoleAssistant, ErrorReply)
}

// AttachMintHash records a confirmed mint on the message at index. This is
// the one sanctioned in-place mutation of a past message: the descriptor's
// Hash is set exactly once and never cleared, and a synthetic success
// message is appended. Role and Content of the target are untouched.
func (s *Session) AttachMintHash(index int, hash string) error {
	if hash == "" {
		return fmt.Errorf("mint hash must not be empty")
	}
	if index < 0 || index >= len(s.messages) {
		return fmt.Errorf("message index %d out of range", index)
	}
	msg := &s.messages[index]
	if msg.NFT == nil {
		return fmt.Errorf("message %d has no NFT descriptor", index)
	}
	if msg.NFT.Hash != "" {
		return fmt.Errorf("message %d already has a mint hash", index)
	}

	msg.NFT.Hash = hash
	s.nft.Hash = hash
	s.Append(RoleAssistant, "Your NFT was minted successfully! Transaction: "+hash)
	return nil
}

// ExtractAssistantText pulls the assistant reply out of whichever shape the
// backend returned: a bare string, {"message": ...}, {"content": ...}, or
// as a last resort the raw JSON itself.
func ExtractAssistantText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var withMessage struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &withMessage); err == nil && withMessage.Message != "" {
		return withMessage.Message
	}

	var withContent struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &withContent); err == nil && withContent.Content != "" {
		return withContent.Content
	}

	return string(raw)
}
