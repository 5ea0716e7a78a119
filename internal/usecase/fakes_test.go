package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"unimarket/internal/domain/entity"
	"unimarket/pkg/errors"
)

// In-memory repository fakes. They mirror the Firestore implementations'
// observable behavior: id and timestamp assignment on create, copies in and
// out, NOT_FOUND AppErrors.

type fakeMessageRepo struct {
	mu     sync.Mutex
	byConv map[string][]*entity.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{byConv: make(map[string][]*entity.Message)}
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	now := time.Now()
	message.CreatedAt = now
	message.UpdatedAt = now

	conversationID := entity.ConversationKey(message.ListingID, message.SenderID, message.ReceiverID)
	stored := *message
	r.byConv[conversationID] = append(r.byConv[conversationID], &stored)
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.byConv[conversationID] {
		if m.ID == messageID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, errors.NotFound("Message", nil)
}

func (r *fakeMessageRepo) Update(ctx context.Context, conversationID string, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.byConv[conversationID] {
		if m.ID == message.ID {
			message.UpdatedAt = time.Now()
			stored := *message
			r.byConv[conversationID][i] = &stored
			return nil
		}
	}
	return errors.NotFound("Message", nil)
}

func (r *fakeMessageRepo) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var visible []*entity.Message
	for _, m := range r.byConv[conversationID] {
		if !m.Deleted {
			copied := *m
			visible = append(visible, &copied)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].CreatedAt.Before(visible[j].CreatedAt)
	})

	total := int64(len(visible))
	if offset >= len(visible) {
		return []*entity.Message{}, total, nil
	}
	visible = visible[offset:]
	if limit > 0 && limit < len(visible) {
		visible = visible[:limit]
	}
	return visible, total, nil
}

func (r *fakeMessageRepo) MarkRead(ctx context.Context, conversationID, senderID, receiverID string) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed []*entity.Message
	now := time.Now()
	for _, m := range r.byConv[conversationID] {
		if m.SenderID == senderID && m.ReceiverID == receiverID && !m.Read {
			m.Read = true
			seen := now
			m.SeenAt = &seen
			copied := *m
			changed = append(changed, &copied)
		}
	}
	return changed, nil
}

func (r *fakeMessageRepo) CountUnread(ctx context.Context, conversationID, receiverID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, m := range r.byConv[conversationID] {
		if m.ReceiverID == receiverID && !m.Read && !m.Deleted {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) LastVisible(ctx context.Context, conversationID string) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var last *entity.Message
	for _, m := range r.byConv[conversationID] {
		if m.Deleted {
			continue
		}
		if last == nil || m.CreatedAt.After(last.CreatedAt) {
			last = m
		}
	}
	if last == nil {
		return nil, nil
	}
	copied := *last
	return &copied, nil
}

func (r *fakeMessageRepo) DeleteAll(ctx context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byConv, conversationID)
	return nil
}

type fakeConversationRepo struct {
	mu   sync.Mutex
	rows map[string]*entity.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{rows: make(map[string]*entity.Conversation)}
}

func (r *fakeConversationRepo) Upsert(ctx context.Context, conversation *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.rows[conversation.ID]; ok {
		conversation.CreatedAt = existing.CreatedAt
		conversation.LastEmailNotifiedAt = existing.LastEmailNotifiedAt
	} else if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = now
	}
	conversation.UpdatedAt = now

	stored := *conversation
	r.rows[conversation.ID] = &stored
	return nil
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.rows[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	copied := *conversation
	return &copied, nil
}

func (r *fakeConversationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var mine []*entity.Conversation
	for _, conversation := range r.rows {
		if conversation.HasParticipant(userID) {
			copied := *conversation
			mine = append(mine, &copied)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool {
		return mine[i].LastMessageAt.After(mine[j].LastMessageAt)
	})

	total := int64(len(mine))
	if offset >= len(mine) {
		return []*entity.Conversation{}, total, nil
	}
	mine = mine[offset:]
	if limit > 0 && limit < len(mine) {
		mine = mine[:limit]
	}
	return mine, total, nil
}

func (r *fakeConversationRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rows, id)
	return nil
}

func (r *fakeConversationRepo) SetLastEmailNotified(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.rows[id]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	conversation.LastEmailNotifiedAt = time.Now()
	return nil
}

type fakeUserRepo struct {
	mu   sync.Mutex
	rows map[string]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	repo := &fakeUserRepo{rows: make(map[string]*entity.User)}
	for _, u := range users {
		stored := *u
		repo.rows[u.ID] = &stored
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *user
	r.rows[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.rows[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[user.ID]; !ok {
		return errors.NotFound("User", nil)
	}
	stored := *user
	r.rows[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) Touch(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.rows[id]
	if !ok {
		return errors.NotFound("User", nil)
	}
	user.LastSeen = time.Now()
	return nil
}

type fakeListingRepo struct {
	mu   sync.Mutex
	rows map[string]*entity.Listing
}

func newFakeListingRepo(listings ...*entity.Listing) *fakeListingRepo {
	repo := &fakeListingRepo{rows: make(map[string]*entity.Listing)}
	for _, l := range listings {
		stored := *l
		repo.rows[l.ID] = &stored
	}
	return repo
}

func (r *fakeListingRepo) Create(ctx context.Context, listing *entity.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	stored := *listing
	r.rows[listing.ID] = &stored
	return nil
}

func (r *fakeListingRepo) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listing, ok := r.rows[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	copied := *listing
	return &copied, nil
}

func (r *fakeListingRepo) Update(ctx context.Context, listing *entity.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[listing.ID]; !ok {
		return errors.NotFound("Listing", nil)
	}
	stored := *listing
	r.rows[listing.ID] = &stored
	return nil
}

func (r *fakeListingRepo) ListBySellerID(ctx context.Context, sellerID string, limit, offset int) ([]*entity.Listing, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var mine []*entity.Listing
	for _, listing := range r.rows {
		if listing.SellerID == sellerID {
			copied := *listing
			mine = append(mine, &copied)
		}
	}
	return mine, int64(len(mine)), nil
}

type fakeNotificationRepo struct {
	mu   sync.Mutex
	rows []*entity.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	notification.CreatedAt = time.Now()
	stored := *notification
	r.rows = append(r.rows, &stored)
	return nil
}

func (r *fakeNotificationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var mine []*entity.Notification
	for _, n := range r.rows {
		if n.UserID == userID {
			copied := *n
			mine = append(mine, &copied)
		}
	}
	total := int64(len(mine))
	if offset >= len(mine) {
		return []*entity.Notification{}, total, nil
	}
	mine = mine[offset:]
	if limit > 0 && limit < len(mine) {
		mine = mine[:limit]
	}
	return mine, total, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, userID, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.rows {
		if n.ID == notificationID {
			if n.UserID != userID {
				return errors.Forbidden("Notification belongs to another user", nil)
			}
			n.Read = true
			return nil
		}
	}
	return errors.NotFound("Notification", nil)
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.rows {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) countFor(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, n := range r.rows {
		if n.UserID == userID {
			count++
		}
	}
	return count
}

type fakeCounterRepo struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeCounterRepo() *fakeCounterRepo {
	return &fakeCounterRepo{counts: make(map[string]int)}
}

func (r *fakeCounterRepo) Get(ctx context.Context, date string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.counts[date], nil
}

func (r *fakeCounterRepo) IncrementAndGet(ctx context.Context, date string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[date]++
	return r.counts[date], nil
}

type fakeEmailSender struct {
	mu       sync.Mutex
	sent     []string // recipient addresses, in send order
	subjects []string
	fail     bool
}

func (s *fakeEmailSender) Send(to, subject, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail {
		return errors.Transport("smtp unavailable", nil)
	}
	s.sent = append(s.sent, to)
	s.subjects = append(s.subjects, subject)
	return nil
}

func (s *fakeEmailSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sent)
}
