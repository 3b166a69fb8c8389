// Package seed provides helpers to create demo data for the warbler
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"warbler/internal/middleware"
	"warbler/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every generated account.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	// synthetic ID counter when running in DryRun mode
	nextID uint
	serial int
	hashes map[string]string
}

// NewFactory creates a new Factory bound to the provided Gorm DB. db may be
// nil when opts.DryRun is set.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:     db,
		opts:   opts,
		faker:  gofakeit.New(seed),
		nextID: 1000,
		hashes: make(map[string]string),
	}
}

// HashPassword bcrypts password, memoized per plain text. FastHash uses the
// minimum cost.
func (f *Factory) HashPassword(password string) (string, error) {
	if h, ok := f.hashes[password]; ok {
		return h, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.FastHash {
		cost = bcrypt.MinCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	f.hashes[password] = string(h)
	return string(h), nil
}

// BuildUser constructs a user without persisting it. The password is
// DefaultPassword unless an override replaces it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	f.serial++
	username := strings.ToLower(fmt.Sprintf("%s%d", alnum(f.faker.Username()), f.serial))
	user := &models.User{
		Username:       username,
		Email:          username + "@example.com",
		ImageURL:       fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		HeaderImageURL: models.DefaultHeaderImageURL,
		Bio:            f.faker.Sentence(10),
		Location:       f.faker.City(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser builds and persists a user. user.Password, if set by an
// override, is treated as plain text and hashed.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	plain := user.Password
	if plain == "" {
		plain = DefaultPassword
	}
	hash, err := f.HashPassword(plain)
	if err != nil {
		return nil, err
	}
	user.Password = hash

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		middleware.Logger.Debug("[dry-run] CreateUser", slog.String("username", user.Username))
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildMessage constructs a message for user with a timestamp spread over
// the last MaxDays days. It is not persisted.
func (f *Factory) BuildMessage(user *models.User, overrides ...func(*models.Message)) *models.Message {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60-1)) * time.Minute
	msg := &models.Message{
		UserID:    user.ID,
		Text:      truncateRunes(f.faker.Sentence(f.faker.Number(4, 14)), models.MaxMessageLength),
		Timestamp: time.Now().UTC().Add(-back),
	}
	for _, override := range overrides {
		override(msg)
	}
	return msg
}

// CreateMessagesBatch persists messages in BatchSize chunks.
func (f *Factory) CreateMessagesBatch(msgs []*models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, m := range msgs {
			f.nextID++
			m.ID = f.nextID
		}
		middleware.Logger.Debug("[dry-run] CreateMessagesBatch", slog.Int("count", len(msgs)))
		return nil
	}
	return f.db.CreateInBatches(msgs, f.batchSize()).Error
}

// CreateFollow makes follower follow followed. Existing edges are left alone.
func (f *Factory) CreateFollow(follower, followed *models.User) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: follower.ID, FollowedID: followed.ID}).Error
}

// CreateLike persists a like from user on msg. Existing likes are left alone.
func (f *Factory) CreateLike(user *models.User, msg *models.Message) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{UserID: user.ID, MessageID: msg.ID}).Error
}

// CreateConversation returns the conversation between a and b, creating it
// if needed.
func (f *Factory) CreateConversation(a, b *models.User) (*models.Conversation, error) {
	lo, hi := models.NormalizePair(a.ID, b.ID)
	conv := &models.Conversation{User1ID: lo, User2ID: hi}
	if f.opts.DryRun {
		f.nextID++
		conv.ID = f.nextID
		return conv, nil
	}
	if err := f.db.Where(models.Conversation{User1ID: lo, User2ID: hi}).FirstOrCreate(conv).Error; err != nil {
		return nil, err
	}
	return conv, nil
}

// CreateDM appends a DM from author to conv.
func (f *Factory) CreateDM(conv *models.Conversation, author *models.User, overrides ...func(*models.DirectMessage)) (*models.DirectMessage, error) {
	dm := &models.DirectMessage{
		ConversationID: conv.ID,
		AuthorID:       author.ID,
		Text:           f.faker.Sentence(f.faker.Number(3, 12)),
	}
	for _, override := range overrides {
		override(dm)
	}
	if f.opts.DryRun {
		f.nextID++
		dm.ID = f.nextID
		return dm, nil
	}
	if err := f.db.Create(dm).Error; err != nil {
		return nil, err
	}
	return dm, nil
}

func (f *Factory) batchSize() int {
	if f.opts.BatchSize > 0 {
		return f.opts.BatchSize
	}
	return 200
}

func alnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < utf8.RuneSelf && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
