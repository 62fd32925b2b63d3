// Package result records finished sessions in an append-only CSV file and
// ranks them by score.
package result

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"
)

const (
	// TimeLimit is the par time in seconds a session is scored against.
	TimeLimit = 200.0
	// DefaultPenalty is the score deducted per wall touch.
	DefaultPenalty = 5.0
)

var header = []string{"id", "name", "start_datetime", "time_sec", "touch_count", "touch_time_sec"}

var ErrMalformed = errors.New("result: malformed record")

// Record is one finished session.
type Record struct {
	ID        int
	Name      string
	Start     time.Time
	Time      time.Duration
	Touches   int
	TouchTime time.Duration
}

// Score is max(0, (TimeLimit - seconds) - touches*penalty).
func Score(r Record, penalty float64) float64 {
	return math.Max(0, (TimeLimit-r.Time.Seconds())-float64(r.Touches)*penalty)
}

func (r Record) row() []string {
	return []string{
		strconv.Itoa(r.ID),
		r.Name,
		r.Start.Format(time.RFC3339),
		strconv.FormatFloat(r.Time.Seconds(), 'f', 3, 64),
		strconv.Itoa(r.Touches),
		strconv.FormatFloat(r.TouchTime.Seconds(), 'f', 3, 64),
	}
}

func parseRow(row []string) (Record, error) {
	if len(row) != len(header) {
		return Record{}, fmt.Errorf("%w: %d fields", ErrMalformed, len(row))
	}
	id, err := strconv.Atoi(row[0])
	if err != nil {
		return Record{}, fmt.Errorf("%w: id: %v", ErrMalformed, err)
	}
	start, err := time.Parse(time.RFC3339, row[2])
	if err != nil {
		return Record{}, fmt.Errorf("%w: start: %v", ErrMalformed, err)
	}
	secs, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: time: %v", ErrMalformed, err)
	}
	touches, err := strconv.Atoi(row[4])
	if err != nil {
		return Record{}, fmt.Errorf("%w: touches: %v", ErrMalformed, err)
	}
	touchSecs, err := strconv.ParseFloat(row[5], 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: touch time: %v", ErrMalformed, err)
	}
	return Record{
		ID:        id,
		Name:      row[1],
		Start:     start,
		Time:      seconds(secs),
		Touches:   touches,
		TouchTime: seconds(touchSecs),
	}, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// Store is a CSV file of records.
type Store struct {
	path    string
	penalty float64
	mu      sync.Mutex
}

func NewStore(path string, penalty float64) *Store {
	return &Store{path: path, penalty: penalty}
}

func (s *Store) Penalty() float64 {
	return s.penalty
}

// All reads every record. A missing file is an empty store.
func (s *Store) All() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

func (s *Store) readAll() ([]Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var out []Record
	first := true
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("result: read %s: %w", s.path, err)
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == header[0] {
				continue
			}
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("result: %s line %d: %w", s.path, len(out)+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Append assigns the next id to rec, writes it and returns it. The header
// is written when the file is new.
func (s *Store) Append(rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readAll()
	if err != nil {
		return Record{}, err
	}
	rec.ID = 1
	for _, r := range existing {
		rec.ID = max(rec.ID, r.ID+1)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return Record{}, fmt.Errorf("result: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return Record{}, fmt.Errorf("result: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			f.Close()
			return Record{}, fmt.Errorf("result: %w", err)
		}
	}
	if err := w.Write(rec.row()); err != nil {
		f.Close()
		return Record{}, fmt.Errorf("result: %w", err)
	}
	w.Flush()
	if err := errors.Join(w.Error(), f.Close()); err != nil {
		return Record{}, fmt.Errorf("result: write %s: %w", s.path, err)
	}
	return rec, nil
}

// Ranked is a record with its score and 1-based rank.
type Ranked struct {
	Record
	Score float64
	Rank  int
}

// Rank orders records by score, best first. Ties keep the earlier session
// ahead.
func Rank(records []Record, penalty float64) []Ranked {
	out := make([]Ranked, len(records))
	for i, r := range records {
		out[i] = Ranked{Record: r, Score: Score(r, penalty)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Top returns the n best records.
func (s *Store) Top(n int) ([]Ranked, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	ranked := Rank(all, s.penalty)
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// RankOf returns the rank of the record with id among all records.
func (s *Store) RankOf(id int) (Ranked, error) {
	all, err := s.All()
	if err != nil {
		return Ranked{}, err
	}
	for _, r := range Rank(all, s.penalty) {
		if r.ID == id {
			return r, nil
		}
	}
	return Ranked{}, fmt.Errorf("result: no record %d", id)
}
