// Package domain defines the persistence models for leads, per-user access
// state, and per-user lead annotations. These types are mapped with GORM and
// form the core data layer of the lead-feed application.
package domain

import (
	"time"
)

// Platforms a raw post can originate from.
const (
	PlatformX        = "x"
	PlatformLinkedIn = "linkedin"
	PlatformReddit   = "reddit"
)

// Niches a qualifying lead can belong to. NicheNone is a classifier verdict
// only ("no hiring intent") and is never persisted on a Lead.
const (
	NicheWriting = "writing"
	NicheVideo   = "video"
	NicheDev     = "dev"
	NicheNone    = "none"
)

// Subscription statuses tracked on UserAccessState.
const (
	SubscriptionNone     = "none"
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionCanceled = "canceled"
)

// Plan types sold at checkout. Day and week are one-time passes; month is an
// ongoing subscription.
const (
	PlanDay   = "day"
	PlanWeek  = "week"
	PlanMonth = "month"
)

// UserLead annotation statuses.
const (
	UserLeadSaved     = "saved"
	UserLeadContacted = "contacted"
	UserLeadHidden    = "hidden"
)

// ValidPlatform reports whether p names a supported source platform.
func ValidPlatform(p string) bool {
	switch p {
	case PlatformX, PlatformLinkedIn, PlatformReddit:
		return true
	}
	return false
}

// ValidNiche reports whether n names a persistable lead niche.
func ValidNiche(n string) bool {
	switch n {
	case NicheWriting, NicheVideo, NicheDev:
		return true
	}
	return false
}

// Lead is a persisted, classified social post expressing hiring intent.
//
// Invariant: at most one Lead per distinct SourceURL, enforced by the unique
// index rather than application logic, because ingestion batches may be
// delivered more than once or overlap concurrently. Leads are created by the
// intake pipeline on a qualifying classification and never updated afterwards.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Platform: source network ("x", "linkedin", "reddit").
//   - Content: full text of the post.
//   - Niche: classified hiring category ("writing", "video", "dev").
//   - AuthorName/Handle/Avatar/Bio: optional author metadata from the scraper.
//   - FollowerCount: author reach, >= 0.
//   - IsHighSignal: classifier flag for explicit budget/timeline/serious intent.
//   - SourceURL: canonical external URL of the post; the dedup key.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Lead struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	Platform      string    `json:"platform"       gorm:"type:varchar(16);not null;check:platform IN ('x','linkedin','reddit')"`
	Content       string    `json:"content"        gorm:"type:text;not null"`
	Niche         string    `json:"niche"          gorm:"type:varchar(16);not null;index:idx_leads_niche;check:niche IN ('writing','video','dev')"`
	AuthorName    *string   `json:"author_name"`
	AuthorHandle  *string   `json:"author_handle"`
	AuthorAvatar  *string   `json:"author_avatar"`
	AuthorBio     *string   `json:"author_bio"`
	FollowerCount int       `json:"follower_count" gorm:"not null;default:0;check:follower_count >= 0"`
	IsHighSignal  bool      `json:"is_high_signal" gorm:"not null;default:false"`
	SourceURL     string    `json:"source_url"     gorm:"type:varchar(2048);not null;uniqueIndex:ux_leads_source_url"`
	CreatedAt     time.Time `json:"created_at"     gorm:"index:idx_leads_created"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for Lead.
func (Lead) TableName() string { return "leads" }

// UserAccessState is the single per-user entitlement record, written only by
// the payment-event projector and read by the resolver. Two independent modes
// can coexist in one record: a time-bounded pass (AccessExpiresAt) and an
// ongoing subscription (SubscriptionStatus); either may be stale.
//
// The record is created on the first qualifying payment event and never
// deleted; every projector branch is an absolute assignment, which is what
// makes replayed webhook deliveries converge.
type UserAccessState struct {
	ID                   string     `json:"id"                     gorm:"type:char(36);primaryKey"`
	UserID               string     `json:"user_id"                gorm:"type:varchar(64);not null;uniqueIndex:ux_access_user"`
	SubscriptionStatus   string     `json:"subscription_status"    gorm:"type:varchar(16);not null;default:'none';check:subscription_status IN ('none','active','trialing','canceled')"`
	PlanType             *string    `json:"plan_type"              gorm:"type:varchar(16)"`
	AccessExpiresAt      *time.Time `json:"access_expires_at"`
	StripeCustomerID     string     `json:"stripe_customer_id"     gorm:"type:varchar(64)"`
	StripeSubscriptionID string     `json:"stripe_subscription_id" gorm:"type:varchar(64)"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TableName returns the database table name for UserAccessState.
func (UserAccessState) TableName() string { return "user_access_states" }

// UserLead is a per-user annotation on a lead (saved / contacted / hidden).
// One annotation per (user, lead) pair, enforced by unique index; saving
// again updates the status in place.
type UserLead struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index;uniqueIndex:ux_user_leads_pair"`
	LeadID    string    `json:"lead_id"    gorm:"type:char(36);not null;index;uniqueIndex:ux_user_leads_pair"`
	Status    string    `json:"status"     gorm:"type:varchar(16);not null;default:'saved';check:status IN ('saved','contacted','hidden')"`
	Notes     *string   `json:"notes"      gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Lead is the annotated lead. Annotations are cascade-deleted if the
	// underlying lead is removed.
	Lead Lead `json:"-" gorm:"foreignKey:LeadID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for UserLead.
func (UserLead) TableName() string { return "user_leads" }
