package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/h4rdev/batch_access_bot/internal/gateway"
)

// fakeGateway запоминает вызовы и отдаёт заранее настроенные ответы
type fakeGateway struct {
	mu sync.Mutex

	nextMsgID int
	topicSeq  int

	sent      []sentMessage
	copies    []copyCall
	edits     map[gateway.MessageRef]string
	captions  map[gateway.MessageRef]string
	reactions map[gateway.MessageRef][]string
	deleted   []gateway.MessageRef

	inviteLinks []string
	revoked     []string
	approved    []memberPair
	declined    []memberPair
	banned      []memberPair
	unbanned    []memberPair

	statuses map[string]gateway.MemberStatus

	createTopicErr error
	copyErr        error
	editTextErr    error
	editCaptionErr error
	reactionErr    error
	createLinkErr  error
	approveErr     error
	banErr         error
	statusErr      error
	sendErr        error
}

type sentMessage struct {
	ChatID  int64
	TopicID int
	Text    string
}

type copyCall struct {
	From     gateway.MessageRef
	ToChatID int64
	TopicID  int
}

type memberPair struct {
	ChatID int64
	UserID int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextMsgID: 1000,
		edits:     make(map[gateway.MessageRef]string),
		captions:  make(map[gateway.MessageRef]string),
		reactions: make(map[gateway.MessageRef][]string),
		statuses:  make(map[string]gateway.MemberStatus),
	}
}

func statusKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

func (f *fakeGateway) setStatus(chatID, userID int64, st gateway.MemberStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[statusKey(chatID, userID)] = st
}

func (f *fakeGateway) sentTo(chatID int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeGateway) SendMessage(ctx context.Context, chatID int64, text string, opts *gateway.SendOptions) (gateway.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return gateway.MessageRef{}, f.sendErr
	}

	topicID := 0
	if opts != nil {
		topicID = opts.TopicID
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, TopicID: topicID, Text: text})
	f.nextMsgID++
	return gateway.MessageRef{ChatID: chatID, MessageID: f.nextMsgID}, nil
}

func (f *fakeGateway) CopyMessage(ctx context.Context, from gateway.MessageRef, toChatID int64, topicID int) (gateway.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.copyErr != nil {
		return gateway.MessageRef{}, f.copyErr
	}

	f.copies = append(f.copies, copyCall{From: from, ToChatID: toChatID, TopicID: topicID})
	f.nextMsgID++
	return gateway.MessageRef{ChatID: toChatID, MessageID: f.nextMsgID}, nil
}

func (f *fakeGateway) EditMessageText(ctx context.Context, ref gateway.MessageRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.editTextErr != nil {
		return f.editTextErr
	}
	f.edits[ref] = text
	return nil
}

func (f *fakeGateway) EditMessageCaption(ctx context.Context, ref gateway.MessageRef, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.editCaptionErr != nil {
		return f.editCaptionErr
	}
	f.captions[ref] = caption
	return nil
}

func (f *fakeGateway) SetReaction(ctx context.Context, ref gateway.MessageRef, emoji []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.reactionErr != nil {
		return f.reactionErr
	}
	f.reactions[ref] = append([]string(nil), emoji...)
	return nil
}

func (f *fakeGateway) DeleteMessage(ctx context.Context, ref gateway.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeGateway) CreateSessionTopic(ctx context.Context, chatID int64, title string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createTopicErr != nil {
		return 0, f.createTopicErr
	}
	f.topicSeq++
	return f.topicSeq, nil
}

func (f *fakeGateway) CreateInviteLink(ctx context.Context, chatID int64, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createLinkErr != nil {
		return "", f.createLinkErr
	}
	link := fmt.Sprintf("https://t.me/+link%d", len(f.inviteLinks)+1)
	f.inviteLinks = append(f.inviteLinks, link)
	return link, nil
}

func (f *fakeGateway) RevokeInviteLink(ctx context.Context, chatID int64, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, link)
	return nil
}

func (f *fakeGateway) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.approveErr != nil {
		return f.approveErr
	}
	f.approved = append(f.approved, memberPair{ChatID: chatID, UserID: userID})
	return nil
}

func (f *fakeGateway) DeclineJoinRequest(ctx context.Context, chatID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declined = append(f.declined, memberPair{ChatID: chatID, UserID: userID})
	return nil
}

func (f *fakeGateway) BanMember(ctx context.Context, chatID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.banErr != nil {
		return f.banErr
	}
	f.banned = append(f.banned, memberPair{ChatID: chatID, UserID: userID})
	return nil
}

func (f *fakeGateway) UnbanMember(ctx context.Context, chatID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unbanned = append(f.unbanned, memberPair{ChatID: chatID, UserID: userID})
	return nil
}

func (f *fakeGateway) MemberStatus(ctx context.Context, chatID, userID int64) (gateway.MemberStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.statusErr != nil {
		return "", f.statusErr
	}
	if st, ok := f.statuses[statusKey(chatID, userID)]; ok {
		return st, nil
	}
	return gateway.StatusLeft, nil
}
