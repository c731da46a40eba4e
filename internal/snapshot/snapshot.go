// Package snapshot persists the full engine state as a single JSON
// document. The canonical file is only ever mutated by an atomic rename
// from a sibling temp file, so a crash mid-write leaves either the old or
// the new snapshot in place, never a torn one.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/evanreis/predictex/internal/domain"
)

const (
	fileName = "data.json"
	tempName = "data.json.temp"
)

// ErrNoSnapshot is returned by Load when no snapshot file exists yet.
var ErrNoSnapshot = errors.New("no snapshot file")

// ErrMalformed is returned by Load when the file parses as JSON but does
// not have the expected document shape.
var ErrMalformed = errors.New("malformed snapshot file")

// State is everything the engine needs to rebuild itself: every book,
// every position, every cash account.
type State struct {
	Orderbook map[string]domain.BookView
	Positions map[string]map[string]domain.Position
	Cash      map[string]domain.CashAccount
}

// Empty returns a State with no books and no accounts, used as the
// first-boot baseline.
func Empty() State {
	return State{
		Orderbook: map[string]domain.BookView{},
		Positions: map[string]map[string]domain.Position{},
		Cash:      map[string]domain.CashAccount{},
	}
}

// validate checks cross-references between the sections: every order
// record and every position entry must name a user with a cash account.
// A restored book that points at a missing account would only surface as
// a ledger error mid-crossing, after earlier legs of the fill had already
// applied.
func (st State) validate() error {
	for symbol, view := range st.Orderbook {
		for _, levels := range [][]domain.LevelView{view.Yes, view.No} {
			for _, lvl := range levels {
				for _, ov := range lvl.Orders {
					if _, found := st.Cash[ov.UserID]; !found {
						return fmt.Errorf("%w: book %s references user %q with no cash account", ErrMalformed, symbol, ov.UserID)
					}
				}
			}
		}
	}
	for userID := range st.Positions {
		if _, found := st.Cash[userID]; !found {
			return fmt.Errorf("%w: stockBalances references user %q with no cash account", ErrMalformed, userID)
		}
	}
	return nil
}

type document struct {
	LastUpdated string  `json:"lastUpdated"`
	Data        payload `json:"data"`
}

type payload struct {
	Orderbook     map[string]domain.BookView            `json:"orderbook"`
	StockBalances map[string]map[string]domain.Position `json:"stockBalances"`
	InrBalances   map[string]domain.CashAccount         `json:"inrBalances"`
}

// rawDocument mirrors document with unparsed fields so Load can tell a
// missing key apart from an empty value.
type rawDocument struct {
	LastUpdated *string `json:"lastUpdated"`
	Data        *struct {
		Orderbook     json.RawMessage `json:"orderbook"`
		StockBalances json.RawMessage `json:"stockBalances"`
		InrBalances   json.RawMessage `json:"inrBalances"`
	} `json:"data"`
}

// Store reads and writes snapshots under a single directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the canonical snapshot file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, fileName)
}

func (s *Store) tempPath() string {
	return filepath.Join(s.dir, tempName)
}

// Write serializes state to the temp file and renames it over the
// canonical file. On any failure the temp file is removed and the
// canonical file is left as it was.
func (s *Store) Write(state State) error {
	doc := document{
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		Data: payload{
			Orderbook:     state.Orderbook,
			StockBalances: state.Positions,
			InrBalances:   state.Cash,
		},
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := s.tempPath()
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}

// Load reads and parses the canonical snapshot file. It returns
// ErrNoSnapshot when the file does not exist and ErrMalformed when the
// document is missing any of its required keys or its sections reference
// users that have no cash account. A failed Load never returns a partial
// State.
func (s *Store) Load() (State, error) {
	raw, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, ErrNoSnapshot
		}
		return State{}, fmt.Errorf("read snapshot file: %w", err)
	}

	var shape rawDocument
	if err := json.Unmarshal(raw, &shape); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if shape.LastUpdated == nil || shape.Data == nil {
		return State{}, fmt.Errorf("%w: missing lastUpdated or data", ErrMalformed)
	}
	if shape.Data.Orderbook == nil || shape.Data.StockBalances == nil || shape.Data.InrBalances == nil {
		return State{}, fmt.Errorf("%w: data is missing a section", ErrMalformed)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	state := State{
		Orderbook: doc.Data.Orderbook,
		Positions: doc.Data.StockBalances,
		Cash:      doc.Data.InrBalances,
	}
	if state.Orderbook == nil {
		state.Orderbook = map[string]domain.BookView{}
	}
	if state.Positions == nil {
		state.Positions = map[string]map[string]domain.Position{}
	}
	if state.Cash == nil {
		state.Cash = map[string]domain.CashAccount{}
	}
	if err := state.validate(); err != nil {
		return State{}, err
	}
	return state, nil
}

// Exists reports whether a canonical snapshot file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}
