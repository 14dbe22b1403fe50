package models

import (
	"time"

	"github.com/oapi-codegen/nullable"
)

// Identity represents the signed-in rider
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

// Author returns the identity as a post or comment author
func (i *Identity) Author() Author {
	return Author{Name: i.Name, Avatar: i.Avatar, UserID: i.ID}
}

// ProfilePatch holds the profile fields a rider may change. Only name and
// email are forwarded to the identity provider.
type ProfilePatch struct {
	Name     nullable.Nullable[string] `json:"name,omitempty"`
	Email    nullable.Nullable[string] `json:"email,omitempty"`
	Avatar   nullable.Nullable[string] `json:"avatar,omitempty"`
	Bio      nullable.Nullable[string] `json:"bio,omitempty"`
	Phone    nullable.Nullable[string] `json:"phone,omitempty"`
	Location nullable.Nullable[string] `json:"location,omitempty"`
}

// Apply merges the patch into a copy of the identity
func (p ProfilePatch) Apply(i Identity) Identity {
	i.Name = mergeString(p.Name, i.Name)
	i.Email = mergeString(p.Email, i.Email)
	i.Avatar = mergeString(p.Avatar, i.Avatar)
	i.Bio = mergeString(p.Bio, i.Bio)
	i.Phone = mergeString(p.Phone, i.Phone)
	i.Location = mergeString(p.Location, i.Location)
	return i
}

// Unit wire values for the settings endpoint
const (
	UnitMetric   = "metric"
	UnitImperial = "imperial"
)

// DefaultAccentColor is used until the settings endpoint answers
const DefaultAccentColor = "#ff6b35"

// Preferences holds the per-rider display preferences
type Preferences struct {
	AccentColor string `json:"accent_color"`
	UseMetric   bool   `json:"use_metric"`
}

// DefaultPreferences returns the preferences used before any fetch
func DefaultPreferences() Preferences {
	return Preferences{AccentColor: DefaultAccentColor, UseMetric: true}
}

// Unit returns the wire value of the unit preference
func (p Preferences) Unit() string {
	if p.UseMetric {
		return UnitMetric
	}
	return UnitImperial
}

// Settings is the body of the settings endpoints
type Settings struct {
	AccentColor string `json:"accentColor,omitempty"`
	Unit        string `json:"unit,omitempty"`
	UserID      string `json:"userId,omitempty"`
}

// Ride represents a logged ride. Distance is always kilometers.
type Ride struct {
	ID            string  `json:"id"`
	UserID        string  `json:"userId"`
	StartLocation string  `json:"startLocation"`
	Destination   string  `json:"destination"`
	Distance      float64 `json:"distance"`
	Duration      float64 `json:"duration"`
	Date          string  `json:"date"`
	Notes         string  `json:"notes,omitempty"`
}

// RidePatch is a partial ride update. Unspecified fields are left untouched.
type RidePatch struct {
	StartLocation nullable.Nullable[string]  `json:"startLocation,omitempty"`
	Destination   nullable.Nullable[string]  `json:"destination,omitempty"`
	Distance      nullable.Nullable[float64] `json:"distance,omitempty"`
	Duration      nullable.Nullable[float64] `json:"duration,omitempty"`
	Date          nullable.Nullable[string]  `json:"date,omitempty"`
	Notes         nullable.Nullable[string]  `json:"notes,omitempty"`
}

// Apply merges the patch into a copy of the ride
func (p RidePatch) Apply(r Ride) Ride {
	r.StartLocation = mergeString(p.StartLocation, r.StartLocation)
	r.Destination = mergeString(p.Destination, r.Destination)
	r.Distance = mergeFloat(p.Distance, r.Distance)
	r.Duration = mergeFloat(p.Duration, r.Duration)
	r.Date = mergeString(p.Date, r.Date)
	r.Notes = mergeString(p.Notes, r.Notes)
	return r
}

// Inverse returns the patch that puts the fields p touches back to their
// values in prev
func (p RidePatch) Inverse(prev Ride) RidePatch {
	return RidePatch{
		StartLocation: restore(p.StartLocation, prev.StartLocation),
		Destination:   restore(p.Destination, prev.Destination),
		Distance:      restore(p.Distance, prev.Distance),
		Duration:      restore(p.Duration, prev.Duration),
		Date:          restore(p.Date, prev.Date),
		Notes:         restore(p.Notes, prev.Notes),
	}
}

// RideUpdate is the body of the updateRide endpoint
type RideUpdate struct {
	ID string `json:"id"`
	RidePatch
}

// ExpenseType is the category of an expense
type ExpenseType string

const (
	ExpenseFuel        ExpenseType = "fuel"
	ExpenseFood        ExpenseType = "food"
	ExpenseMaintenance ExpenseType = "maintenance"
	ExpenseUpgrades    ExpenseType = "upgrades"
	ExpenseOther       ExpenseType = "other"
)

// ExpenseTypes lists the categories in display order
var ExpenseTypes = []ExpenseType{ExpenseFuel, ExpenseFood, ExpenseMaintenance, ExpenseUpgrades, ExpenseOther}

// Valid reports whether t is a known category
func (t ExpenseType) Valid() bool {
	for _, known := range ExpenseTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Expense represents a ride-related expense
type Expense struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	Type        ExpenseType `json:"type"`
	Amount      float64     `json:"amount"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
}

// ExpensePatch is a partial expense update
type ExpensePatch struct {
	Type        nullable.Nullable[ExpenseType] `json:"type,omitempty"`
	Amount      nullable.Nullable[float64]     `json:"amount,omitempty"`
	Date        nullable.Nullable[string]      `json:"date,omitempty"`
	Description nullable.Nullable[string]      `json:"description,omitempty"`
}

// Apply merges the patch into a copy of the expense
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Type.IsSpecified() && !p.Type.IsNull() {
		e.Type = p.Type.MustGet()
	}
	e.Amount = mergeFloat(p.Amount, e.Amount)
	e.Date = mergeString(p.Date, e.Date)
	e.Description = mergeString(p.Description, e.Description)
	return e
}

// Inverse returns the patch that puts the fields p touches back to their
// values in prev
func (p ExpensePatch) Inverse(prev Expense) ExpensePatch {
	return ExpensePatch{
		Type:        restore(p.Type, prev.Type),
		Amount:      restore(p.Amount, prev.Amount),
		Date:        restore(p.Date, prev.Date),
		Description: restore(p.Description, prev.Description),
	}
}

// Author identifies who wrote a post or comment
type Author struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	UserID string `json:"userId"`
}

// MediaType is the kind of media attached to a post
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Media is an uploaded attachment
type Media struct {
	Type MediaType `json:"type"`
	URL  string    `json:"url"`
}

// Comment is an append-only reply to a post
type Comment struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Post represents a social feed entry
type Post struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	Media     *Media    `json:"media,omitempty"`
	Likes     []string  `json:"likes"`
	Comments  []Comment `json:"comments"`
	Timestamp time.Time `json:"timestamp"`
}

// LikedBy reports whether userID is in the post's likes
func (p *Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// PostPatch is the subset of post fields accepted by updatePost
type PostPatch struct {
	Content  nullable.Nullable[string]    `json:"content,omitempty"`
	Media    nullable.Nullable[Media]     `json:"media,omitempty"`
	Likes    nullable.Nullable[[]string]  `json:"likes,omitempty"`
	Comments nullable.Nullable[[]Comment] `json:"comments,omitempty"`
}

// Apply merges the patch into a copy of the post. A null media removes it.
func (p PostPatch) Apply(post Post) Post {
	post.Content = mergeString(p.Content, post.Content)
	if p.Media.IsSpecified() {
		if p.Media.IsNull() {
			post.Media = nil
		} else {
			m := p.Media.MustGet()
			post.Media = &m
		}
	}
	if p.Likes.IsSpecified() && !p.Likes.IsNull() {
		post.Likes = p.Likes.MustGet()
	}
	if p.Comments.IsSpecified() && !p.Comments.IsNull() {
		post.Comments = p.Comments.MustGet()
	}
	return post
}

// Inverse returns the patch that puts the content and media p touches back
// to their values in prev. Likes and comments are reverted by the caller.
func (p PostPatch) Inverse(prev Post) PostPatch {
	inv := PostPatch{Content: restore(p.Content, prev.Content)}
	if p.Media.IsSpecified() {
		if prev.Media == nil {
			inv.Media.SetNull()
		} else {
			inv.Media = nullable.NewNullableWithValue(*prev.Media)
		}
	}
	return inv
}

// PostUpdate is the body of the updatePost endpoint
type PostUpdate struct {
	ID string `json:"id"`
	PostPatch
}

// SOSContact is an emergency contact owned by a rider
type SOSContact struct {
	ID     string `json:"id"`
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

// OwnedBy reports whether the contact belongs to userID. Older records carry
// no owner and reuse the rider id as their own id.
func (c *SOSContact) OwnedBy(userID string) bool {
	if c.UserID != "" {
		return c.UserID == userID
	}
	return c.ID == userID
}

// restore carries prev for a field v specifies and leaves the rest unspecified
func restore[V any](v nullable.Nullable[V], prev V) nullable.Nullable[V] {
	if !v.IsSpecified() {
		return nil
	}
	return nullable.NewNullableWithValue(prev)
}

func mergeString(v nullable.Nullable[string], current string) string {
	if !v.IsSpecified() {
		return current
	}
	if v.IsNull() {
		return ""
	}
	return v.MustGet()
}

func mergeFloat(v nullable.Nullable[float64], current float64) float64 {
	if !v.IsSpecified() || v.IsNull() {
		return current
	}
	return v.MustGet()
}
