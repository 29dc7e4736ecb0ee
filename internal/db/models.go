package db

import (
	"time"
)

// Gender values accepted for both a user's own gender and their looking_for
// preference.
type Gender string

const (
	GenderMale      Gender = "male"
	GenderFemale    Gender = "female"
	GenderNonBinary Gender = "non_binary"
	GenderOther     Gender = "other"
)

// SwipeType is the kind of decision one user made about another.
type SwipeType string

const (
	SwipeLike      SwipeType = "like"
	SwipePass      SwipeType = "pass"
	SwipeSuperLike SwipeType = "super_like"
)

// MessageType is the payload kind of a chat message.
type MessageType string

const (
	MessageText    MessageType = "text"
	MessageImage   MessageType = "image"
	MessageVideo   MessageType = "video"
	MessageAudio   MessageType = "audio"
	MessageVoice   MessageType = "voice"
	MessageGif     MessageType = "gif"
	MessageSticker MessageType = "sticker"
	MessageFile    MessageType = "file"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageVideo, MessageAudio,
		MessageVoice, MessageGif, MessageSticker, MessageFile:
		return true
	}
	return false
}

// MessageStatus tracks delivery state of a message.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Photo is one entry of a user's ordered photo list.
// Stored as JSON inside the users row; at most one entry has IsPrimary set.
type Photo struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	IsPrimary bool   `json:"is_primary"`
	Order     int    `json:"order"`
}

// Coordinates is a lat/long pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is the user's resolved place plus raw coordinates.
type Location struct {
	City        string       `json:"city,omitempty"`
	State       string       `json:"state,omitempty"`
	Country     string       `json:"country,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Preferences control the discovery pool for a user.
type Preferences struct {
	MinAge           int  `json:"min_age" gorm:"default:18"`
	MaxAge           int  `json:"max_age" gorm:"default:50"`
	MaxDistance      int  `json:"max_distance" gorm:"default:50"` // miles
	ShowDistance     bool `json:"show_distance" gorm:"default:true"`
	ShowOnlineStatus bool `json:"show_online_status" gorm:"default:true"`
}

// User table: identity, dating profile and runtime presence.
//
// Invariants enforced by the service layer:
//   - photos: max 6, min 1 once any exist, exactly one marked primary.
//   - interests: 1..10 entries.
//   - PasswordHash may be empty only for social-only accounts.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255"`
	Name         string `gorm:"size:64;not null"`
	Age          int    `gorm:"not null"`
	Gender       Gender `gorm:"size:16;not null;index:idx_discover,priority:1"`
	LookingFor   Gender `gorm:"size:16;not null;index:idx_discover,priority:2"`
	Bio          string `gorm:"size:500"`

	Interests []string  `gorm:"serializer:json"`
	Photos    []Photo   `gorm:"serializer:json"`
	Location  *Location `gorm:"serializer:json"`

	Preferences      Preferences `gorm:"embedded;embeddedPrefix:pref_"`
	DiscoveryEnabled bool        `gorm:"default:true"`

	IsOnline   bool `gorm:"default:false"`
	IsVerified bool `gorm:"default:false"`
	LastActive time.Time

	// Email verification
	VerificationCode        string `gorm:"size:16"`
	VerificationCodeExpires *time.Time

	// Daily super-like quota
	SuperLikesRemaining int `gorm:"default:3"`
	SuperLikesResetAt   *time.Time

	// Premium status
	IsPremium        bool `gorm:"default:false"`
	PremiumExpiresAt *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// PrimaryPhotoURL returns the primary photo, falling back to the first one.
func (u *User) PrimaryPhotoURL() string {
	for _, p := range u.Photos {
		if p.IsPrimary {
			return p.URL
		}
	}
	if len(u.Photos) > 0 {
		return u.Photos[0].URL
	}
	return ""
}

// PhotoURLs returns photo URLs in display order.
func (u *User) PhotoURLs() []string {
	urls := make([]string, 0, len(u.Photos))
	for _, p := range u.Photos {
		urls = append(urls, p.URL)
	}
	return urls
}

// Swipe records one directional decision.
//
// Unique index on (swiper_id, swiped_id) guarantees at most one swipe per
// ordered pair. Rows are immutable; the only mutation is deletion via undo.
type Swipe struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	SwiperID  uint64    `gorm:"not null;uniqueIndex:idx_swiper_swiped,priority:1"`
	SwipedID  uint64    `gorm:"not null;uniqueIndex:idx_swiper_swiped,priority:2"`
	Type      SwipeType `gorm:"size:16;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Match is the symmetric relationship created on a mutual like.
//
// PairKey is "min:max" of the two user IDs and carries a unique index while
// the match is active; it is cleared on deactivation so the pair can match
// again later. This is what makes match creation race-safe: two concurrent
// mutual likes collide on the same PairKey and only one insert wins.
type Match struct {
	ID        uint64  `gorm:"primaryKey;autoIncrement"`
	User1ID   uint64  `gorm:"not null;index"`
	User2ID   uint64  `gorm:"not null;index"`
	PairKey   *string `gorm:"size:48;uniqueIndex"`
	MatchedAt time.Time
	IsActive  bool `gorm:"default:true"`
	User1Seen bool `gorm:"default:false"`
	User2Seen bool `gorm:"default:false"`
}

// OtherUserID returns the participant that is not userID.
func (m *Match) OtherUserID(userID uint64) uint64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// IsNewFor reports whether userID has not yet seen this match.
func (m *Match) IsNewFor(userID uint64) bool {
	if m.User1ID == userID {
		return !m.User1Seen
	}
	return !m.User2Seen
}

// PinnedMessage is a snapshot of a pinned message, stored as JSON on the
// conversation. Content is a preview captured at pin time.
type PinnedMessage struct {
	MessageID uint64    `json:"message_id"`
	Content   string    `json:"content"`
	PinnedBy  uint64    `json:"pinned_by"`
	PinnedAt  time.Time `json:"pinned_at"`
}

// Conversation is the 1:1 channel owned by a match, plus aggregate state the
// client list view needs without loading messages.
type Conversation struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	MatchID uint64 `gorm:"not null;uniqueIndex"`
	User1ID uint64 `gorm:"not null;index"`
	User2ID uint64 `gorm:"not null;index"`

	// Last message cache for list previews
	LastMessageID       *uint64
	LastMessageContent  string `gorm:"size:128"`
	LastMessageSenderID uint64
	LastMessageAt       *time.Time

	User1UnreadCount int `gorm:"default:0"`
	User2UnreadCount int `gorm:"default:0"`

	PinnedMessages []PinnedMessage `gorm:"serializer:json"`

	User1MutedUntil *time.Time
	User2MutedUntil *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index"`
}

// OtherUserID returns the participant that is not userID.
func (c *Conversation) OtherUserID(userID uint64) uint64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// HasParticipant reports whether userID belongs to this conversation.
func (c *Conversation) HasParticipant(userID uint64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// UnreadCountFor returns the unread counter belonging to userID.
func (c *Conversation) UnreadCountFor(userID uint64) int {
	if c.User1ID == userID {
		return c.User1UnreadCount
	}
	return c.User2UnreadCount
}

// MutedUntilFor returns the mute expiry belonging to userID, nil if unmuted.
func (c *Conversation) MutedUntilFor(userID uint64) *time.Time {
	if c.User1ID == userID {
		return c.User1MutedUntil
	}
	return c.User2MutedUntil
}

// Reaction is one user's emoji on a message. At most one per user; a second
// reaction from the same user replaces the first.
type Reaction struct {
	Emoji     string    `json:"emoji"`
	UserID    uint64    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MediaInfo carries metadata for media messages.
type MediaInfo struct {
	Duration     int    `json:"duration,omitempty"` // seconds
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
}

// ReplyInfo is an immutable preview of the replied-to message, captured at
// send time. Later edits or deletion of the original do not touch it.
type ReplyInfo struct {
	MessageID  uint64      `json:"message_id"`
	SenderID   uint64      `json:"sender_id"`
	SenderName string      `json:"sender_name"`
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
}

// Message table. Append-only except the edit window on text messages and the
// soft-delete flags; deletion never removes the row.
type Message struct {
	ID             uint64        `gorm:"primaryKey;autoIncrement"`
	ConversationID uint64        `gorm:"not null;index:idx_msg_conv_ts,priority:1"`
	SenderID       uint64        `gorm:"not null;index"`
	Content        string        `gorm:"type:text;not null"`
	Type           MessageType   `gorm:"size:16;not null;default:text"`
	Status         MessageStatus `gorm:"size:16;not null;default:sent"`
	Timestamp      time.Time     `gorm:"autoCreateTime;index:idx_msg_conv_ts,priority:2,sort:desc"`

	MediaURL  string     `gorm:"size:512"`
	MediaInfo *MediaInfo `gorm:"serializer:json"`

	ReplyTo   *ReplyInfo `gorm:"serializer:json"`
	Reactions []Reaction `gorm:"serializer:json"`

	IsEdited bool `gorm:"default:false"`
	EditedAt *time.Time

	IsDeleted bool `gorm:"default:false"`
	DeletedAt *time.Time
}

// Block is a directed block; either direction hides the pair from discovery
// and kills any active match.
type Block struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	BlockerID uint64    `gorm:"not null;uniqueIndex:idx_blocker_blocked,priority:1"`
	BlockedID uint64    `gorm:"not null;uniqueIndex:idx_blocker_blocked,priority:2;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Report is a user-submitted abuse report, stored for moderation.
type Report struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	ReporterID uint64    `gorm:"not null;index"`
	ReportedID uint64    `gorm:"not null;index"`
	Reason     string    `gorm:"size:64;not null"`
	Details    string    `gorm:"size:1000"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// RefreshToken persists issued refresh tokens by their jti so they can be
// rotated and revoked.
type RefreshToken struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"not null;index"`
	JTI       string    `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Revoked   bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
