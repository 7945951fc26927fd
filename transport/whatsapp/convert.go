package whatsapp

import (
	"wa-relay/domain"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

// identity is the paired account, known both by phone number and by LID.
type identity struct {
	JID types.JID
	LID types.JID
}

// canonical maps the account LID onto its phone JID so that both spellings
// of the owner compare equal. Device suffixes are dropped.
func (i identity) canonical(jid types.JID) types.JID {
	jid = jid.ToNonAD()
	if !i.LID.IsEmpty() && jid.User == i.LID.User && jid.Server == i.LID.Server {
		return i.JID.ToNonAD()
	}
	return jid
}

// toChatEvent converts a whatsmeow message into a transport-neutral event.
// For incoming messages the recipient is the account itself, for outgoing
// ones it is the conversation they were written into.
func toChatEvent(evt *events.Message, self identity) domain.ChatEvent {
	info := evt.Info
	recipient := self.canonical(self.JID)
	if info.IsFromMe {
		recipient = self.canonical(info.Chat)
	}
	return domain.ChatEvent{
		ID:         info.ID,
		Chat:       info.Chat.String(),
		Sender:     self.canonical(info.Sender).String(),
		Recipient:  recipient.String(),
		SenderName: info.PushName,
		Body:       textOf(evt.Message),
		Type:       typeOf(evt),
		Timestamp:  info.Timestamp,
		FromMe:     info.IsFromMe,
		IsGroup:    info.IsGroup,
	}
}

// Types reported for messages that are not plain text written by a user.
// whatsmeow labels protocol messages (revokes, history sync, key shares)
// as "text", so the payload decides.
const (
	TypeProtocol = "protocol"
	TypeEdit     = "edit"
	TypeOther    = "other"
)

// typeOf returns domain.TextType only for a fresh text payload.
// Edits are reported apart: the edited message was already recorded and
// answered, so an edit neither stores a second row nor triggers a completion.
func typeOf(evt *events.Message) string {
	msg := evt.Message
	switch {
	case msg.GetProtocolMessage() != nil:
		return TypeProtocol
	case evt.IsEdit:
		return TypeEdit
	case msg != nil && (msg.Conversation != nil || msg.ExtendedTextMessage != nil):
		return domain.TextType
	case evt.Info.Type != "" && evt.Info.Type != domain.TextType:
		return evt.Info.Type
	default:
		return TypeOther
	}
}

func textOf(msg *waE2E.Message) string {
	if text := msg.GetConversation(); text != "" {
		return text
	}
	return msg.GetExtendedTextMessage().GetText()
}

// buildReply quotes the triggering message so the answer is threaded under it.
func buildReply(to domain.ChatEvent, text string) *waE2E.Message {
	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:      proto.String(to.ID),
				Participant:   proto.String(to.Sender),
				QuotedMessage: &waE2E.Message{Conversation: proto.String(to.Body)},
			},
		},
	}
}
