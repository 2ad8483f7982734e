package storage

import "strings"

const DefaultPrefix = "budgeto"

// Key is a fully qualified storage key such as "budgeto.appstate".
type Key string

func (k Key) String() string { return string(k) }

// Keys enumerates every key the application writes under one prefix.
type Keys struct {
	AppState    Key
	SeedApplied Key
	LastOpened  Key
	Lock        Key
	DevMode     Key
	Theme       Key
	Locale      Key
}

// NewKeys builds the key set for prefix. An empty prefix uses DefaultPrefix.
func NewKeys(prefix string) Keys {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	k := func(name string) Key { return Key(prefix + "." + name) }
	return Keys{
		AppState:    k("appstate"),
		SeedApplied: k("seed.applied"),
		LastOpened:  k("lastOpenedISO"),
		Lock:        k("lock"),
		DevMode:     k("devMode"),
		Theme:       k("theme"),
		Locale:      k("locale"),
	}
}

// All returns every key, document first.
func (k Keys) All() []Key {
	return []Key{k.AppState, k.SeedApplied, k.LastOpened, k.Lock, k.DevMode, k.Theme, k.Locale}
}

// Preferences are the keys that survive normal use but are cleared by a
// full reset so onboarding runs again.
func (k Keys) Preferences() []Key {
	return []Key{k.Theme, k.Locale}
}
