package services

import (
	"encoding/json"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-service/internal/models"
	"storefront-service/pkg/common"
)

// Task type shared with the worker (duplicated to avoid an import cycle).
const TypeActivityRecord = "activity:record"

type ActivityPayload struct {
	Uid    string `json:"uid"`
	Action string `json:"action"`
	Detail string `json:"detail"`
}

// ActivityService writes activity logs and notifications. Activity entries
// go through the worker queue so a slow log write never sits on the purchase
// path; when the queue is unavailable it falls back to a direct write. Both
// are best-effort.
type ActivityService struct {
	DB    *gorm.DB
	Asynq *asynq.Client
	Log   *zap.Logger
}

func NewActivityService(db *gorm.DB, client *asynq.Client, log *zap.Logger) *ActivityService {
	return &ActivityService{DB: db, Asynq: client, Log: log}
}

func (s *ActivityService) Record(uid, action, detail string) {
	payload := ActivityPayload{Uid: uid, Action: action, Detail: detail}

	if s.Asynq != nil {
		raw, err := json.Marshal(payload)
		if err == nil {
			if _, err := s.Asynq.Enqueue(asynq.NewTask(TypeActivityRecord, raw)); err == nil {
				return
			}
		}
		s.Log.Warn("activity enqueue failed, writing directly", zap.String("action", action))
	}

	s.Write(payload)
}

// Write persists one activity entry. Called by the worker and by the direct
// fallback.
func (s *ActivityService) Write(payload ActivityPayload) {
	entry := models.ActivityLog{Uid: payload.Uid, Action: payload.Action, Detail: payload.Detail}
	if err := s.DB.Create(&entry).Error; err != nil {
		s.Log.Warn("activity log write failed", zap.String("action", payload.Action), zap.Error(err))
	}
}

func (s *ActivityService) Notify(uid, title, body string) {
	notification := models.Notification{Uid: uid, Title: title, Body: body}
	if err := s.DB.Create(&notification).Error; err != nil {
		s.Log.Warn("notification write failed", zap.String("uid", uid), zap.Error(err))
	}
}

func (s *ActivityService) ListNotifications(uid string, page, limit int) (common.PaginationResult, error) {
	if limit <= 0 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	query := s.DB.Model(&models.Notification{}).Where("uid = ?", uid)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, err
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&notifications).Error; err != nil {
		return common.PaginationResult{}, err
	}

	return common.PaginateResponse(notifications, total, page, limit, "Notifications fetched"), nil
}
