package domain

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a long-form post
type Post struct {
	ID          string         `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Title       string         `gorm:"column:title;type:varchar(255)" json:"title"`
	Content     string         `gorm:"column:content;type:text" json:"content"`
	AuthorID    string         `gorm:"column:author_id;type:uuid;index" json:"author_id"`
	Published   bool           `gorm:"column:published;default:false;index" json:"published"`
	PublishedAt *time.Time     `gorm:"column:published_at" json:"published_at,omitempty"`
	// Generated column: to_tsvector('simple', title || ' ' || content).
	// Owned by the surrounding application's schema, read-only here.
	SearchVector string         `gorm:"column:search_vector;type:tsvector;->" json:"-"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Post) TableName() string { return "posts" }

// Activity represents a short-form activity update
type Activity struct {
	ID           string         `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Body         string         `gorm:"column:body;type:text" json:"body"`
	AuthorID     string         `gorm:"column:author_id;type:uuid;index" json:"author_id"`
	Published    bool           `gorm:"column:published;default:true;index" json:"published"`
	PublishedAt  *time.Time     `gorm:"column:published_at" json:"published_at,omitempty"`
	SearchVector string         `gorm:"column:search_vector;type:tsvector;->" json:"-"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Activity) TableName() string { return "activities" }

// User represents a member profile
type User struct {
	ID        string         `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Name      string         `gorm:"column:name;type:varchar(100);index" json:"name"`
	Bio       *string        `gorm:"column:bio;type:text" json:"bio,omitempty"`
	AvatarKey *string        `gorm:"column:avatar_key;type:varchar(500)" json:"-"`
	Role      string         `gorm:"column:role;type:varchar(20);default:'member'" json:"role"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (User) TableName() string { return "users" }

// Tag represents a post tag with a denormalized usage counter
type Tag struct {
	ID         string         `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Name       string         `gorm:"column:name;type:varchar(100);uniqueIndex" json:"name"`
	PostsCount int64          `gorm:"column:posts_count;default:0" json:"posts_count"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Tag) TableName() string { return "tags" }

// PostTag is the post/tag join row
type PostTag struct {
	PostID string `gorm:"column:post_id;type:uuid;primaryKey" json:"post_id"`
	TagID  string `gorm:"column:tag_id;type:uuid;primaryKey" json:"tag_id"`
}

func (PostTag) TableName() string { return "post_tags" }
