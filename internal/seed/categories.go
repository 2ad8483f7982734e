// Package seed provides the built-in category tree and a generator of
// plausible demo entries for dev mode.
package seed

import "budgeto/internal/core"

func sub(id, icon string) core.Subcategory {
	return core.Subcategory{ID: id, DisplayNameKey: "categories." + id, Icon: icon}
}

// Categories returns a fresh copy of the built-in categories.
func Categories() []core.Category {
	cats := []core.Category{
		{ID: "lon", Icon: "💰", Color: "#22c55e"},
		{ID: "bolig", Icon: "🏠", Color: "#3b82f6", Subcategories: []core.Subcategory{
			sub("husleje", "🔑"), sub("el", "⚡"), sub("vand", "💧"), sub("varme", "🔥"), sub("internet", "🌐"),
		}},
		{ID: "mad", Icon: "🍽️", Color: "#f97316", Subcategories: []core.Subcategory{
			sub("dagligvarer", "🛒"), sub("restaurant", "🍝"), sub("cafe", "☕"),
		}},
		{ID: "transport", Icon: "🚗", Color: "#a855f7", Subcategories: []core.Subcategory{
			sub("benzin", "⛽"), sub("kollektiv", "🚇"), sub("parkering", "🅿️"),
		}},
		{ID: "shopping", Icon: "🛍️", Color: "#ec4899", Subcategories: []core.Subcategory{
			sub("toj", "👕"), sub("elektronik", "💻"), sub("diverse", "📦"),
		}},
		{ID: "fritid", Icon: "🎉", Color: "#eab308", Subcategories: []core.Subcategory{
			sub("streaming", "📺"), sub("sport", "🏋️"), sub("hobby", "🎨"),
		}},
		{ID: "sundhed", Icon: "🩺", Color: "#14b8a6", Subcategories: []core.Subcategory{
			sub("apotek", "💊"), sub("laege", "🏥"),
		}},
		{ID: "andet", Icon: "📌", Color: "#64748b"},
	}
	for i := range cats {
		cats[i].DisplayNameKey = "categories." + cats[i].ID
	}
	return cats
}
