package seed

import (
	"fmt"
	"log/slog"

	"warbler/internal/middleware"
	"warbler/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers           int
	NumMessages        int
	FollowsPerUser     int
	LikesPerUser       int
	Conversations      int
	DMsPerConversation int

	ShouldClean bool
	// FastHash hashes passwords at bcrypt.MinCost.
	FastHash bool
	// DryRun builds entities with synthetic IDs and writes nothing.
	DryRun    bool
	MaxDays   int
	BatchSize int
	// RandSeed makes a run reproducible. Zero seeds from the clock.
	RandSeed int64
}

// DefaultOptions is what cmd/seed runs without flags.
func DefaultOptions() Options {
	return Options{
		NumUsers:           50,
		NumMessages:        400,
		FollowsPerUser:     8,
		LikesPerUser:       15,
		Conversations:      20,
		DMsPerConversation: 6,
		ShouldClean:        true,
		MaxDays:            90,
		BatchSize:          200,
	}
}

// Summary counts what a run created.
type Summary struct {
	Users          int
	Messages       int
	Follows        int
	Likes          int
	Conversations  int
	DirectMessages int
}

func (s Summary) String() string {
	return fmt.Sprintf("users=%d messages=%d follows=%d likes=%d conversations=%d dms=%d",
		s.Users, s.Messages, s.Follows, s.Likes, s.Conversations, s.DirectMessages)
}

// Seeder populates the database with generated data.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
	summary Summary
}

// NewSeeder returns a Seeder writing through db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Factory exposes the underlying entity factory.
func (s *Seeder) Factory() *Factory { return s.factory }

// Summary returns the running totals.
func (s *Seeder) Summary() Summary { return s.summary }

// Run executes a full seed according to the options.
func (s *Seeder) Run() (Summary, error) {
	middleware.Logger.Info("Starting database seeding",
		slog.Int("users", s.opts.NumUsers),
		slog.Int("messages", s.opts.NumMessages),
	)
	if s.opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return s.summary, fmt.Errorf("clear: %w", err)
		}
	}
	users, err := s.SeedSocialMesh(s.opts.NumUsers)
	if err != nil {
		return s.summary, fmt.Errorf("failed to create users: %w", err)
	}
	if _, err := s.SeedEngagement(users, s.opts.NumMessages); err != nil {
		return s.summary, fmt.Errorf("failed to create messages: %w", err)
	}
	if err := s.SeedConversations(users, s.opts.Conversations); err != nil {
		return s.summary, fmt.Errorf("failed to create conversations: %w", err)
	}
	middleware.Logger.Info("Database seeding completed", slog.String("summary", s.summary.String()))
	return s.summary, nil
}

// ClearAll deletes every row of every warbler table, children first.
func (s *Seeder) ClearAll() error {
	if s.opts.DryRun {
		return nil
	}
	middleware.Logger.Info("Clearing existing data")
	if s.db.Dialector.Name() == "postgres" {
		return s.db.Exec(`TRUNCATE TABLE direct_messages, conversations, likes, messages, follows, users RESTART IDENTITY CASCADE`).Error
	}
	tx := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range []any{
		&models.DirectMessage{},
		&models.Conversation{},
		&models.Like{},
		&models.Message{},
		&models.Follow{},
		&models.User{},
	} {
		if err := tx.Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedSocialMesh creates n users and a random follow graph between them.
// Nobody follows themself.
func (s *Seeder) SeedSocialMesh(n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		u, err := s.factory.CreateUser()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	s.summary.Users += len(users)

	if len(users) < 2 {
		return users, nil
	}
	for _, u := range users {
		for _, other := range s.pick(users, s.opts.FollowsPerUser, u) {
			if err := s.factory.CreateFollow(u, other); err != nil {
				return nil, err
			}
			s.summary.Follows++
		}
	}
	return users, nil
}

// SeedEngagement writes count messages by random authors and a random set of
// likes on them.
func (s *Seeder) SeedEngagement(users []*models.User, count int) ([]*models.Message, error) {
	if len(users) == 0 || count <= 0 {
		return nil, nil
	}
	msgs := make([]*models.Message, 0, count)
	for i := 0; i < count; i++ {
		msgs = append(msgs, s.factory.BuildMessage(users[s.factory.faker.Number(0, len(users)-1)]))
	}
	if err := s.factory.CreateMessagesBatch(msgs); err != nil {
		return nil, err
	}
	s.summary.Messages += len(msgs)

	for _, u := range users {
		likes := s.opts.LikesPerUser
		if likes > len(msgs) {
			likes = len(msgs)
		}
		seen := make(map[int]struct{}, likes)
		for len(seen) < likes {
			idx := s.factory.faker.Number(0, len(msgs)-1)
			if _, dup := seen[idx]; dup {
				continue
			}
			seen[idx] = struct{}{}
			if err := s.factory.CreateLike(u, msgs[idx]); err != nil {
				return nil, err
			}
			s.summary.Likes++
		}
	}
	return msgs, nil
}

// SeedConversations opens up to n conversations between distinct random
// pairs and fills each with DMsPerConversation alternating messages.
func (s *Seeder) SeedConversations(users []*models.User, n int) error {
	if len(users) < 2 {
		return nil
	}
	pairs := make(map[[2]uint]struct{})
	maxPairs := len(users) * (len(users) - 1) / 2
	for len(pairs) < n && len(pairs) < maxPairs {
		a := users[s.factory.faker.Number(0, len(users)-1)]
		b := users[s.factory.faker.Number(0, len(users)-1)]
		if a.ID == b.ID {
			continue
		}
		lo, hi := models.NormalizePair(a.ID, b.ID)
		if _, dup := pairs[[2]uint{lo, hi}]; dup {
			continue
		}
		pairs[[2]uint{lo, hi}] = struct{}{}

		conv, err := s.factory.CreateConversation(a, b)
		if err != nil {
			return err
		}
		s.summary.Conversations++
		for i := 0; i < s.opts.DMsPerConversation; i++ {
			author := a
			if i%2 == 1 {
				author = b
			}
			if _, err := s.factory.CreateDM(conv, author); err != nil {
				return err
			}
			s.summary.DirectMessages++
		}
	}
	return nil
}

// pick returns up to k distinct users other than self.
func (s *Seeder) pick(users []*models.User, k int, self *models.User) []*models.User {
	if k > len(users)-1 {
		k = len(users) - 1
	}
	out := make([]*models.User, 0, k)
	seen := map[uint]struct{}{self.ID: {}}
	for len(out) < k {
		u := users[s.factory.faker.Number(0, len(users)-1)]
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	return out
}
