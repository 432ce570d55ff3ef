// Package controls tracks the rendered favorite buttons and keeps every one
// of them, across pages and open tabs, showing the current favorite state.
package controls

import "sync"

// Control is anything rendered for a title that shows its favorite state.
type Control interface {
	Title() string
	SetFavorite(favorite bool)
}

type Context string

const (
	ContextGrid      Context = "grid"
	ContextCarousel  Context = "carousel"
	ContextDetail    Context = "detail"
	ContextFavorites Context = "favorites"
)

const (
	IconFavorite    = "favorite"
	IconNotFavorite = "favorite_border"

	ClassFavorite    = "text-red-500 fill-current"
	ClassNotFavorite = "text-slate-400"
)

// Button is a favorite toggle rendered on a card, carousel item, detail page
// or favorites page.
type Button struct {
	title   string
	context Context

	mu       sync.Mutex
	favorite bool
}

func NewButton(title string, ctx Context, favorite bool) *Button {
	return &Button{title: title, context: ctx, favorite: favorite}
}

func (b *Button) Title() string { return b.title }

func (b *Button) SetFavorite(favorite bool) {
	b.mu.Lock()
	b.favorite = favorite
	b.mu.Unlock()
}

func (b *Button) Favorite() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.favorite
}

// ButtonView is the rendered form of a Button.
type ButtonView struct {
	Title    string  `json:"title"`
	Context  Context `json:"context"`
	Favorite bool    `json:"favorite"`
	Icon     string  `json:"icon"`
	Class    string  `json:"class"`
}

func (b *Button) View() ButtonView {
	v := ButtonView{Title: b.title, Context: b.context, Favorite: b.Favorite()}
	if v.Favorite {
		v.Icon, v.Class = IconFavorite, ClassFavorite
	} else {
		v.Icon, v.Class = IconNotFavorite, ClassNotFavorite
	}
	return v
}
