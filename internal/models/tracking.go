package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Статусные цвета по умолчанию для новых записей.
const (
	DefaultStatusLineColor = "#2196F3"
	DefaultStatusDotColor  = "#2196F3"
)

// TrackingRecord — одна посылка со всеми её метаданными и историей.
// История встроена в документ: события принадлежат записи и удаляются вместе с ней.
type TrackingRecord struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TrackingID       string             `bson:"trackingId" json:"trackingId"`
	Status           string             `bson:"status" json:"status"`
	StatusLineColor  string             `bson:"statusLineColor" json:"statusLineColor"`
	StatusDotColor   string             `bson:"statusDotColor" json:"statusDotColor"`
	IsBlinking       bool               `bson:"isBlinking" json:"isBlinking"`
	Sender           string             `bson:"sender" json:"sender"`
	Recipient        string             `bson:"recipient" json:"recipient"`
	Contents         string             `bson:"contents" json:"contents"`
	ServiceType      string             `bson:"serviceType" json:"serviceType"`
	Address          string             `bson:"address" json:"address"`
	SpecialHandling  string             `bson:"specialHandling" json:"specialHandling"`
	Weight           float64            `bson:"weight" json:"weight"`
	History          []HistoryEvent     `bson:"history" json:"history"`
	ExpectedDelivery *time.Time         `bson:"expectedDelivery,omitempty" json:"expectedDelivery,omitempty"`
	LastUpdated      time.Time          `bson:"lastUpdated" json:"lastUpdated"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
}

// HistoryEvent — одна веха в пути посылки. ID назначается при создании
// и стабилен на всё время жизни записи.
type HistoryEvent struct {
	ID          string    `bson:"id" json:"id"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
	Location    string    `bson:"location" json:"location"`
	Description string    `bson:"description" json:"description"`
}

type TrackingCreateInput struct {
	TrackingID      string  `json:"trackingId"`
	Status          string  `json:"status"`
	StatusLineColor string  `json:"statusLineColor"`
	StatusDotColor  string  `json:"statusDotColor"`
	IsBlinking      bool    `json:"isBlinking"`
	Sender          string  `json:"sender"`
	Recipient       string  `json:"recipient"`
	Contents        string  `json:"contents"`
	ServiceType     string  `json:"serviceType"`
	Address         string  `json:"address"`
	SpecialHandling string  `json:"specialHandling"`
	Weight          float64 `json:"weight"`
}
