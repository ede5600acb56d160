package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FullName возвращает имя и фамилию, либо username, если они не заданы.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

type Group struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Post - запись в блоге. Author и Group заполняются при рендеринге страницы.
type Post struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	AuthorID  int64     `json:"authorId"`
	GroupID   *int64    `json:"groupId"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	Author *User  `json:"-"`
	Group  *Group `json:"-"`
}

// PostFilter задает выборку постов. Limit <= 0 означает "все строки начиная с Offset".
type PostFilter struct {
	GroupID  *int64
	AuthorID *int64
	Offset   int
	Limit    int
}
