package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"talklink/models"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Store is the gorm-backed conversation store: rooms, participants, the
// append-only message log and bridge integrations.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to the database selected by driver ("sqlite" or "mysql").
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if driver == "sqlite" {
		// cascades are only enforced with the pragma on
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	return New(db), nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&models.Conversation{}, &models.Participant{}, &models.Message{}, &models.BridgeIntegration{},
		&models.EmailHistory{}, &models.ProposalHistory{})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// CreateConversation creates a room with a fresh invite code.
func (s *Store) CreateConversation(ctx context.Context, name string) (models.Conversation, error) {
	conv := models.Conversation{
		Name:       strings.TrimSpace(name),
		InviteCode: strings.ToUpper(uuid.NewString()[:8]),
	}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

func (s *Store) GetConversation(ctx context.Context, id uint) (models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, id).Error; err != nil {
		return models.Conversation{}, notFound(err)
	}
	return conv, nil
}

func (s *Store) ConversationByInvite(ctx context.Context, code string) (models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).Where("invite_code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&conv).Error
	if err != nil {
		return models.Conversation{}, notFound(err)
	}
	return conv, nil
}

func (s *Store) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var convs []models.Conversation
	if err := s.db.WithContext(ctx).Order("id desc").Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

// DeleteConversation removes a room together with its participants, messages
// and integration. Deleting a missing room is not an error.
func (s *Store) DeleteConversation(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&models.Message{}, &models.Participant{}, &models.BridgeIntegration{}} {
			if err := tx.Where("conversation_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Conversation{}, id).Error
	})
}

// CreateParticipant registers a counter-party with a new access token.
func (s *Store) CreateParticipant(ctx context.Context, conversationID uint, nickname, language string) (models.Participant, error) {
	if language == "" {
		language = "en"
	}
	p := models.Participant{
		ConversationID: conversationID,
		Nickname:       strings.TrimSpace(nickname),
		Token:          uuid.NewString(),
		Language:       language,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return models.Participant{}, err
	}
	return p, nil
}

func (s *Store) ParticipantByToken(ctx context.Context, token string) (models.Participant, error) {
	var p models.Participant
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&p).Error; err != nil {
		return models.Participant{}, notFound(err)
	}
	return p, nil
}

func (s *Store) ParticipantsOf(ctx context.Context, conversationID uint) ([]models.Participant, error) {
	var ps []models.Participant
	err := s.db.WithContext(ctx).Where("conversation_id = ?", conversationID).Order("id").Find(&ps).Error
	return ps, err
}

// AppendMessage persists msg and returns the stored record. The timestamp is
// assigned here and never goes backwards within a conversation.
func (s *Store) AppendMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	msg.ID = 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		if err := tx.Select("id").First(&conv, msg.ConversationID).Error; err != nil {
			return notFound(err)
		}
		created := s.now().UTC()
		var last models.Message
		err := tx.Where("conversation_id = ?", msg.ConversationID).Order("id desc").Limit(1).Find(&last).Error
		if err != nil {
			return err
		}
		if last.ID != 0 && last.CreatedAt.After(created) {
			created = last.CreatedAt
		}
		msg.CreatedAt = created
		return tx.Create(&msg).Error
	})
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// RecentMessages returns the last limit messages of a conversation, oldest first.
func (s *Store) RecentMessages(ctx context.Context, conversationID uint, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id desc").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// SaveIntegration creates or replaces the bridge integration of a conversation.
func (s *Store) SaveIntegration(ctx context.Context, in models.BridgeIntegration) (models.BridgeIntegration, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.BridgeIntegration
		err := tx.Where("conversation_id = ?", in.ConversationID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&in).Error
		case err != nil:
			return err
		}
		in.ID = existing.ID
		in.CreatedAt = existing.CreatedAt
		return tx.Save(&in).Error
	})
	if err != nil {
		return models.BridgeIntegration{}, err
	}
	return in, nil
}

func (s *Store) GetIntegration(ctx context.Context, conversationID uint) (models.BridgeIntegration, error) {
	var in models.BridgeIntegration
	if err := s.db.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&in).Error; err != nil {
		return models.BridgeIntegration{}, notFound(err)
	}
	return in, nil
}

func (s *Store) DeleteIntegration(ctx context.Context, conversationID uint) error {
	return s.db.WithContext(ctx).Where("conversation_id = ?", conversationID).Delete(&models.BridgeIntegration{}).Error
}

func (s *Store) Integrations(ctx context.Context) ([]models.BridgeIntegration, error) {
	var ins []models.BridgeIntegration
	err := s.db.WithContext(ctx).Order("conversation_id").Find(&ins).Error
	return ins, err
}
