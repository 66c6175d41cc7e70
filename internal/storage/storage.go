package storage

import (
	"context"
	"errors"
	"time"

	"anonchat/backend/internal/logger"
	"anonchat/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// banUpdateChannel is the Redis pub/sub channel used to bust ban caches
// when an admin (or another process) mutates the ban table.
const banUpdateChannel = "ban:updates"

// Storage is the persistence contract for the realtime plane and the admin
// surface. All methods are point operations.
type Storage interface {
	// Bans
	IsBanned(ip string) (bool, error)
	CreateBan(ban *models.BanRecord) error
	GetBanByIP(ip string) (*models.BanRecord, error)
	GetBanByID(id uint) (*models.BanRecord, error)
	DeleteBan(id uint) error
	DeleteBanByIP(ip string) error
	ListBans() ([]models.BanRecord, error)
	CountBans() (int64, error)
	PublishBanUpdate(ip string) error

	// Appeals
	CreateAppeal(appeal *models.BanAppeal) error
	GetAppealByID(id uint) (*models.BanAppeal, error)
	GetPendingAppealByIP(ip string) (*models.BanAppeal, error)
	ListAppeals(status string) ([]models.BanAppeal, error)
	UpdateAppeal(appeal *models.BanAppeal) error

	// Session and message logs
	SaveChatSession(session *models.ChatSession) error
	CloseChatSession(roomID string, endedAt int64, messageCount int) error
	LogMessage(msg *models.ChatMessageLog) error

	// Counters
	SaveDailyStats(stat *models.DailyStat) error
	SaveHourlyStats(stat *models.HourlyStat) error
	AddUniqueSource(day, ip string) error
	CountUniqueSources(day string) (int64, error)
	TouchRateLimit(ip, action string, count int, windowStart int64) error
}

// Service implements Storage over PostgreSQL and Redis. Redis may be nil
// (the admin CLI runs without it); Redis-backed methods then degrade to
// no-ops or zero values.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewService constructor.
func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// Migrate creates the persisted tables.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.BanRecord{},
		&models.BanAppeal{},
		&models.ChatSession{},
		&models.ChatMessageLog{},
		&models.DailyStat{},
		&models.HourlyStat{},
		&models.RateLimit{},
	)
}

// --- Bans ---

func (s *Service) IsBanned(ip string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.BanRecord{}).Where("ip = ?", ip).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) CreateBan(ban *models.BanRecord) error {
	if ban.BannedAt == 0 {
		ban.BannedAt = time.Now().Unix()
	}
	return s.DB.Create(ban).Error
}

func (s *Service) GetBanByIP(ip string) (*models.BanRecord, error) {
	var ban models.BanRecord
	err := s.DB.Where("ip = ?", ip).First(&ban).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ban, nil
}

func (s *Service) GetBanByID(id uint) (*models.BanRecord, error) {
	var ban models.BanRecord
	err := s.DB.First(&ban, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ban, nil
}

func (s *Service) DeleteBan(id uint) error {
	return s.DB.Delete(&models.BanRecord{}, id).Error
}

func (s *Service) DeleteBanByIP(ip string) error {
	return s.DB.Where("ip = ?", ip).Delete(&models.BanRecord{}).Error
}

func (s *Service) ListBans() ([]models.BanRecord, error) {
	var bans []models.BanRecord
	err := s.DB.Order("banned_at desc").Find(&bans).Error
	return bans, err
}

func (s *Service) CountBans() (int64, error) {
	var count int64
	err := s.DB.Model(&models.BanRecord{}).Count(&count).Error
	return count, err
}

// PublishBanUpdate notifies every process that the ban table changed for ip.
func (s *Service) PublishBanUpdate(ip string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Publish(s.Ctx, banUpdateChannel, ip).Err()
}

// BanUpdates subscribes to ban mutations and streams the affected source
// addresses. The goroutine exits when the pub/sub connection closes.
func (s *Service) BanUpdates() <-chan string {
	out := make(chan string)
	if s.Redis == nil {
		close(out)
		return out
	}
	pubsub := s.Redis.Subscribe(s.Ctx, banUpdateChannel)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			out <- msg.Payload
		}
	}()
	return out
}

// --- Appeals ---

func (s *Service) CreateAppeal(appeal *models.BanAppeal) error {
	if appeal.Status == "" {
		appeal.Status = models.AppealPending
	}
	if appeal.SubmittedAt == 0 {
		appeal.SubmittedAt = time.Now().Unix()
	}
	return s.DB.Create(appeal).Error
}

func (s *Service) GetAppealByID(id uint) (*models.BanAppeal, error) {
	var appeal models.BanAppeal
	err := s.DB.First(&appeal, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &appeal, nil
}

func (s *Service) GetPendingAppealByIP(ip string) (*models.BanAppeal, error) {
	var appeal models.BanAppeal
	err := s.DB.Where("ip = ? AND status = ?", ip, models.AppealPending).First(&appeal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &appeal, nil
}

func (s *Service) ListAppeals(status string) ([]models.BanAppeal, error) {
	var appeals []models.BanAppeal
	q := s.DB.Order("submitted_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&appeals).Error
	return appeals, err
}

func (s *Service) UpdateAppeal(appeal *models.BanAppeal) error {
	return s.DB.Save(appeal).Error
}

// --- Session and message logs ---

func (s *Service) SaveChatSession(session *models.ChatSession) error {
	return s.DB.Save(session).Error
}

func (s *Service) CloseChatSession(roomID string, endedAt int64, messageCount int) error {
	return s.DB.Model(&models.ChatSession{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"is_active":     0,
			"ended_at":      endedAt,
			"message_count": messageCount,
		}).Error
}

func (s *Service) LogMessage(msg *models.ChatMessageLog) error {
	if msg.SentAt == 0 {
		msg.SentAt = time.Now().Unix()
	}
	if err := s.DB.Create(msg).Error; err != nil {
		logger.Log.Errorf("Failed to log message for room %s: %v", msg.RoomID, err)
		return err
	}
	return nil
}

// --- Counters ---

func (s *Service) SaveDailyStats(stat *models.DailyStat) error {
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		UpdateAll: true,
	}).Create(stat).Error
}

func (s *Service) SaveHourlyStats(stat *models.HourlyStat) error {
	return s.DB.Create(stat).Error
}

// AddUniqueSource records ip in the day's unique-source set. The set lives
// in Redis so it survives restarts within the day; keys expire after 48h.
func (s *Service) AddUniqueSource(day, ip string) error {
	if s.Redis == nil {
		return nil
	}
	key := "unique_sources:" + day
	if err := s.Redis.SAdd(s.Ctx, key, ip).Err(); err != nil {
		return err
	}
	return s.Redis.Expire(s.Ctx, key, 48*time.Hour).Err()
}

func (s *Service) CountUniqueSources(day string) (int64, error) {
	if s.Redis == nil {
		return 0, nil
	}
	return s.Redis.SCard(s.Ctx, "unique_sources:"+day).Result()
}

// TouchRateLimit mirrors the in-memory window into the rate_limits table.
func (s *Service) TouchRateLimit(ip, action string, count int, windowStart int64) error {
	row := models.RateLimit{IP: ip, Action: action, Count: count, WindowStart: windowStart}
	return s.DB.Where("ip = ? AND action = ?", ip, action).
		Assign(map[string]interface{}{"count": count, "window_start": windowStart}).
		FirstOrCreate(&row).Error
}
