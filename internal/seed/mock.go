package seed

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgeto/internal/core"
)

// MockData is a month of demo entries. Variable entries are newest first.
type MockData struct {
	FixedEntries    []core.FixedEntry
	VariableEntries []core.VariableEntry
}

type template struct {
	categoryID    string
	subcategoryID string
	typ           core.EntryType
	min, max      int64 // minor units, inclusive
	currency      core.Currency
	notes         []string
}

func fixed(id string, typ core.EntryType, cat, subcat string, ore int64, note string) core.FixedEntry {
	return core.FixedEntry{ID: id, Entry: core.Entry{
		Type:          typ,
		CategoryID:    cat,
		SubcategoryID: subcat,
		Money:         core.DKKMoney(ore),
		Note:          note,
	}}
}

var fixedEntries = []core.FixedEntry{
	fixed("mock-lon", core.Income, "lon", "", 3500000, "Månedsløn"),
	fixed("mock-husleje", core.Expense, "bolig", "husleje", 850000, "Husleje inkl. aconto"),
	fixed("mock-el", core.Expense, "bolig", "el", 45000, ""),
	fixed("mock-internet", core.Expense, "bolig", "internet", 29900, "Fibernet 1000/1000"),
	fixed("mock-streaming-netflix", core.Expense, "fritid", "streaming", 11900, "Netflix Premium"),
	fixed("mock-streaming-spotify", core.Expense, "fritid", "streaming", 9900, "Spotify Family"),
	fixed("mock-sport-fitness", core.Expense, "fritid", "sport", 39900, "Fitness World"),
}

var templates = []template{
	{"mad", "dagligvarer", core.Expense, 15000, 45000, core.DKK, []string{"Netto", "Rema 1000", "Føtex", "Aldi", "Lidl"}},
	{"mad", "restaurant", core.Expense, 20000, 85000, core.DKK, []string{"Middag med venner", "Sushi", "Pizza", "Burger", "Thai takeaway"}},
	{"mad", "cafe", core.Expense, 3500, 7500, core.DKK, []string{"Kaffe", "Latte", "Morgenmad"}},
	{"transport", "benzin", core.Expense, 40000, 65000, core.DKK, []string{"Shell", "Q8", "Circle K", "OKQ8"}},
	{"transport", "kollektiv", core.Expense, 2400, 4800, core.DKK, []string{"Rejsekort", "Bus", "Metro"}},
	{"transport", "parkering", core.Expense, 2000, 8000, core.DKK, []string{"P-billet", "Parkeringshus"}},
	{"shopping", "toj", core.Expense, 15000, 75000, core.DKK, []string{"H&M", "Zara", "Uniqlo", "Jack & Jones"}},
	{"shopping", "elektronik", core.Expense, 30000, 400000, core.DKK, []string{"Elgiganten", "Power", "Computersalg"}},
	{"shopping", "diverse", core.Expense, 5000, 25000, core.DKK, nil},
	{"fritid", "hobby", core.Expense, 10000, 50000, core.DKK, []string{"Materialekøb", "Bog", "Spil"}},
	{"sundhed", "apotek", core.Expense, 5000, 25000, core.DKK, []string{"Apoteket", "Matas"}},
	{"mad", "restaurant", core.Expense, 2500, 8000, core.EUR, []string{"Paris restaurant", "Berlin cafe", "Ferie middag"}},
	{"shopping", "elektronik", core.Expense, 5000, 50000, core.USD, []string{"Amazon.com", "eBay"}},
}

const (
	minVariable = 35
	maxVariable = 45
	firstHour   = 8
	lastHour    = 21
)

// Generator produces demo data. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	src *rand.ChaCha8
	rnd *rand.Rand
}

// NewGenerator returns a generator seeded from seed. Equal seeds produce
// equal data for equal clocks.
func NewGenerator(seed uint64) *Generator {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	src := rand.NewChaCha8(key)
	return &Generator{src: src, rnd: rand.New(src)}
}

// NewRandomGenerator seeds from the runtime's random source.
func NewRandomGenerator() *Generator {
	return NewGenerator(rand.Uint64())
}

func (g *Generator) SeedCategories() []core.Category {
	return Categories()
}

// GenerateMockData builds the fixed entries plus 35 to 45 variable entries
// spread over the days of now's month up to and including today, between
// 08:00 and 21:59 in now's location, never after now.
func (g *Generator) GenerateMockData(now time.Time) MockData {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := MockData{
		FixedEntries: append([]core.FixedEntry(nil), fixedEntries...),
	}

	n := minVariable + g.rnd.IntN(maxVariable-minVariable+1)
	loc := now.Location()
	for i := 0; i < n; i++ {
		tpl := templates[g.rnd.IntN(len(templates))]

		day := 1 + g.rnd.IntN(now.Day())
		hour := firstHour + g.rnd.IntN(lastHour-firstHour+1)
		minute := g.rnd.IntN(60)
		ts := time.Date(now.Year(), now.Month(), day, hour, minute, 0, 0, loc)
		if ts.After(now) {
			ts = now
		}

		amount := tpl.min + g.rnd.Int64N(tpl.max-tpl.min+1)

		var note string
		if len(tpl.notes) > 0 && g.rnd.IntN(2) == 1 {
			note = tpl.notes[g.rnd.IntN(len(tpl.notes))]
		}

		out.VariableEntries = append(out.VariableEntries, core.VariableEntry{
			ID:        g.newID(i),
			Timestamp: ts.UnixMilli(),
			Entry: core.Entry{
				Type:          tpl.typ,
				CategoryID:    tpl.categoryID,
				SubcategoryID: tpl.subcategoryID,
				Money:         core.Money{Amount: amount, Currency: tpl.currency},
				Note:          note,
			},
		})
	}

	sort.SliceStable(out.VariableEntries, func(i, j int) bool {
		return out.VariableEntries[i].Timestamp > out.VariableEntries[j].Timestamp
	})
	return out
}

func (g *Generator) newID(i int) string {
	id, err := uuid.NewRandomFromReader(g.src)
	if err != nil {
		// ChaCha8 never fails to read
		return fmt.Sprintf("mock-var-%d", i)
	}
	return "mock-var-" + id.String()
}
