package seed

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"warbler/internal/middleware"
	"warbler/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yml
var builtinPresets embed.FS

// Preset is a YAML description of named accounts, their graph and
// conversations, with optional random fill on top.
type Preset struct {
	Name          string               `yaml:"name"`
	Description   string               `yaml:"description"`
	Fill          *PresetFill          `yaml:"fill"`
	Users         []PresetUser         `yaml:"users"`
	Conversations []PresetConversation `yaml:"conversations"`
}

// PresetFill asks for generated data in addition to the named accounts.
type PresetFill struct {
	Users              int `yaml:"users"`
	Messages           int `yaml:"messages"`
	FollowsPerUser     int `yaml:"follows_per_user"`
	LikesPerUser       int `yaml:"likes_per_user"`
	Conversations      int `yaml:"conversations"`
	DMsPerConversation int `yaml:"dms_per_conversation"`
}

// PresetUser is one named account.
type PresetUser struct {
	Username string       `yaml:"username"`
	Email    string       `yaml:"email"`
	Password string       `yaml:"password"`
	ImageURL string       `yaml:"image_url"`
	Bio      string       `yaml:"bio"`
	Location string       `yaml:"location"`
	Follows  []string     `yaml:"follows"`
	Messages []string     `yaml:"messages"`
	Likes    []PresetLike `yaml:"likes"`
}

// PresetLike points at the Nth (1-based) message of author in the preset.
type PresetLike struct {
	Author  string `yaml:"author"`
	Message int    `yaml:"message"`
}

// PresetConversation is a conversation between two named accounts.
type PresetConversation struct {
	Between  [2]string  `yaml:"between"`
	Messages []PresetDM `yaml:"messages"`
}

// PresetDM is one line of a preset conversation.
type PresetDM struct {
	From string `yaml:"from"`
	Text string `yaml:"text"`
}

// ParsePreset decodes and checks a preset. Every reference must name an
// account defined in the same preset.
func ParsePreset(data []byte) (*Preset, error) {
	var p Preset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode preset: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadPreset reads a preset file from disk.
func LoadPreset(file string) (*Preset, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return ParsePreset(data)
}

// BuiltinPreset returns the embedded preset called name.
func BuiltinPreset(name string) (*Preset, error) {
	data, err := builtinPresets.ReadFile(path.Join("presets", name+".yml"))
	if err != nil {
		return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(BuiltinPresetNames(), ", "))
	}
	return ParsePreset(data)
}

// BuiltinPresetNames lists the embedded presets.
func BuiltinPresetNames() []string {
	entries, _ := builtinPresets.ReadDir("presets")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yml"))
	}
	sort.Strings(names)
	return names
}

func (p *Preset) validate() error {
	known := make(map[string]*PresetUser, len(p.Users))
	for i := range p.Users {
		u := &p.Users[i]
		if u.Username == "" {
			return fmt.Errorf("preset user #%d has no username", i+1)
		}
		if _, dup := known[u.Username]; dup {
			return fmt.Errorf("preset user %q defined twice", u.Username)
		}
		known[u.Username] = u
	}

	var errs []error
	for _, u := range p.Users {
		for _, f := range u.Follows {
			if _, ok := known[f]; !ok {
				errs = append(errs, fmt.Errorf("%s follows unknown user %q", u.Username, f))
			}
		}
		for _, l := range u.Likes {
			author, ok := known[l.Author]
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("%s likes a message by unknown user %q", u.Username, l.Author))
			case l.Message < 1 || l.Message > len(author.Messages):
				errs = append(errs, fmt.Errorf("%s likes message %d of %s, which has %d", u.Username, l.Message, l.Author, len(author.Messages)))
			}
		}
		for _, m := range u.Messages {
			if len([]rune(m)) > models.MaxMessageLength {
				errs = append(errs, fmt.Errorf("%s has a message longer than %d characters", u.Username, models.MaxMessageLength))
			}
		}
	}
	for _, c := range p.Conversations {
		for _, name := range c.Between {
			if _, ok := known[name]; !ok {
				errs = append(errs, fmt.Errorf("conversation with unknown user %q", name))
			}
		}
		for _, dm := range c.Messages {
			if dm.From != c.Between[0] && dm.From != c.Between[1] {
				errs = append(errs, fmt.Errorf("%q writes in a conversation between %s and %s", dm.From, c.Between[0], c.Between[1]))
			}
		}
	}
	return errors.Join(errs...)
}

// ApplyPreset creates the preset's accounts, graph and conversations, then
// the random fill, if any.
func (s *Seeder) ApplyPreset(p *Preset) error {
	middleware.Logger.Info("Applying seed preset", slog.String("preset", p.Name))

	byName := make(map[string]*models.User, len(p.Users))
	for _, pu := range p.Users {
		u, err := s.factory.CreateUser(func(u *models.User) {
			u.Username = pu.Username
			u.Email = pu.Email
			if u.Email == "" {
				u.Email = pu.Username + "@example.com"
			}
			u.Password = pu.Password
			if pu.ImageURL != "" {
				u.ImageURL = pu.ImageURL
			}
			u.Bio = pu.Bio
			u.Location = pu.Location
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", pu.Username, err)
		}
		byName[pu.Username] = u
		s.summary.Users++
	}

	posted := make(map[string][]*models.Message, len(p.Users))
	for _, pu := range p.Users {
		author := byName[pu.Username]
		msgs := make([]*models.Message, 0, len(pu.Messages))
		for _, text := range pu.Messages {
			msgs = append(msgs, s.factory.BuildMessage(author, func(m *models.Message) { m.Text = text }))
		}
		if err := s.factory.CreateMessagesBatch(msgs); err != nil {
			return err
		}
		posted[pu.Username] = msgs
		s.summary.Messages += len(msgs)
	}

	for _, pu := range p.Users {
		u := byName[pu.Username]
		for _, f := range pu.Follows {
			if err := s.factory.CreateFollow(u, byName[f]); err != nil {
				return err
			}
			s.summary.Follows++
		}
		for _, l := range pu.Likes {
			if err := s.factory.CreateLike(u, posted[l.Author][l.Message-1]); err != nil {
				return err
			}
			s.summary.Likes++
		}
	}

	for _, c := range p.Conversations {
		conv, err := s.factory.CreateConversation(byName[c.Between[0]], byName[c.Between[1]])
		if err != nil {
			return err
		}
		s.summary.Conversations++
		for _, dm := range c.Messages {
			if _, err := s.factory.CreateDM(conv, byName[dm.From], func(d *models.DirectMessage) { d.Text = dm.Text }); err != nil {
				return err
			}
			s.summary.DirectMessages++
		}
	}

	if p.Fill == nil {
		return nil
	}
	s.opts.FollowsPerUser = p.Fill.FollowsPerUser
	s.opts.LikesPerUser = p.Fill.LikesPerUser
	s.opts.DMsPerConversation = p.Fill.DMsPerConversation
	users, err := s.SeedSocialMesh(p.Fill.Users)
	if err != nil {
		return err
	}
	if _, err := s.SeedEngagement(users, p.Fill.Messages); err != nil {
		return err
	}
	return s.SeedConversations(users, p.Fill.Conversations)
}
