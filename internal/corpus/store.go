// Package corpus holds the in-memory restaurant table and its aligned
// embedding matrix. The store is read-only after Load and safe to share
// across requests without locking.
package corpus

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/tablerank/tablerank/pkg/models"
)

// ErrNotFound is returned when a restaurant id is not in the corpus.
var ErrNotFound = errors.New("restaurant not found")

var csvColumns = []string{
	"id", "name", "address", "city", "locality",
	"price_bucket", "avg_cost_for_two", "avg_rating", "cuisines",
}

var lower = cases.Lower(language.Und)

// Fold normalizes free-form text for matching: NFC normalization,
// Unicode lower-casing, surrounding whitespace trimmed.
func Fold(s string) string {
	return strings.TrimSpace(lower.String(norm.NFC.String(s)))
}

// row carries the pre-folded match fields alongside a restaurant so the
// per-request filter does no case work.
type row struct {
	restaurant   *models.Restaurant
	cityFold     string
	localityFold string
	cuisinesFold map[string]struct{}
	embeddingIdx int
}

// Store is the loaded corpus. Identifier and embedding row index stay in
// lockstep for the lifetime of the process.
type Store struct {
	rows       []row
	byID       map[string]int
	embeddings [][]float32
	dimensions int
	logger     *logrus.Logger
}

// Load reads the restaurant CSV and the aligned embedding matrix.
// Any inconsistency (row-count mismatch, ragged embedding dimensions,
// missing required fields, duplicate ids) is a load-time failure; the
// caller is expected to treat it as fatal.
func Load(restaurantsPath, embeddingsPath string, logger *logrus.Logger) (*Store, error) {
	restaurants, err := loadRestaurants(restaurantsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurants: %w", err)
	}

	embeddings, dims, err := loadEmbeddings(embeddingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}

	if len(embeddings) != len(restaurants) {
		return nil, fmt.Errorf("corpus mismatch: %d restaurants but %d embedding rows",
			len(restaurants), len(embeddings))
	}

	s := &Store{
		rows:       make([]row, 0, len(restaurants)),
		byID:       make(map[string]int, len(restaurants)),
		embeddings: embeddings,
		dimensions: dims,
		logger:     logger,
	}

	for i, r := range restaurants {
		if _, dup := s.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate restaurant id %q at row %d", r.ID, i)
		}
		cuisines := make(map[string]struct{}, len(r.Cuisines))
		for _, c := range r.Cuisines {
			cuisines[Fold(c)] = struct{}{}
		}
		s.rows = append(s.rows, row{
			restaurant:   r,
			cityFold:     Fold(r.City),
			localityFold: Fold(r.Locality),
			cuisinesFold: cuisines,
			embeddingIdx: i,
		})
		s.byID[r.ID] = i
	}

	logger.WithFields(logrus.Fields{
		"restaurants": len(s.rows),
		"dimensions":  dims,
	}).Info("Corpus loaded")

	return s, nil
}

// Len returns the number of restaurants in the corpus.
func (s *Store) Len() int {
	return len(s.rows)
}

// Dimensions returns the embedding vector length shared by every row.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Get returns the restaurant with the given id.
func (s *Store) Get(id string) (*models.Restaurant, error) {
	idx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.rows[idx].restaurant, nil
}

// EmbeddingOf returns the embedding vector for a restaurant id.
func (s *Store) EmbeddingOf(id string) ([]float32, error) {
	idx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.embeddings[s.rows[idx].embeddingIdx], nil
}

// FilterCandidates returns every restaurant matching the preference's
// hard constraints. No ordering is guaranteed; ranking belongs to the
// scoring engine.
func (s *Store) FilterCandidates(pref *models.Preference) []*models.Restaurant {
	location := Fold(pref.Location)

	priceSet := make(map[string]struct{}, len(pref.PriceRange))
	for _, b := range pref.PriceRange {
		priceSet[b] = struct{}{}
	}

	cuisineSet := make([]string, 0, len(pref.Cuisines))
	for _, c := range pref.Cuisines {
		if folded := Fold(c); folded != "" {
			cuisineSet = append(cuisineSet, folded)
		}
	}

	var matched []*models.Restaurant
	for i := range s.rows {
		r := &s.rows[i]

		if location != "" &&
			!strings.Contains(r.cityFold, location) &&
			!strings.Contains(r.localityFold, location) {
			continue
		}

		if len(priceSet) > 0 {
			if _, ok := priceSet[r.restaurant.PriceBucket]; !ok {
				continue
			}
		}

		if r.restaurant.AvgRating < pref.MinRating {
			continue
		}

		if len(cuisineSet) > 0 {
			overlap := false
			for _, c := range cuisineSet {
				if _, ok := r.cuisinesFold[c]; ok {
					overlap = true
					break
				}
			}
			if !overlap {
				continue
			}
		}

		matched = append(matched, r.restaurant)
	}

	return matched
}

// Cities returns the sorted distinct city names in the corpus.
func (s *Store) Cities() []string {
	seen := make(map[string]struct{})
	var cities []string
	for i := range s.rows {
		city := s.rows[i].restaurant.City
		if city == "" {
			continue
		}
		if _, ok := seen[city]; !ok {
			seen[city] = struct{}{}
			cities = append(cities, city)
		}
	}
	sort.Strings(cities)
	return cities
}

// Cuisines returns the sorted distinct cuisine names in the corpus.
func (s *Store) Cuisines() []string {
	seen := make(map[string]struct{})
	var cuisines []string
	for i := range s.rows {
		for _, c := range s.rows[i].restaurant.Cuisines {
			if c == "" {
				continue
			}
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				cuisines = append(cuisines, c)
			}
		}
	}
	sort.Strings(cuisines)
	return cuisines
}

func loadRestaurants(path string) ([]*models.Restaurant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.TrimSpace(name)] = i
	}
	for _, required := range csvColumns {
		if _, ok := colIdx[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var restaurants []*models.Restaurant
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		line++

		r, err := parseRestaurant(record, colIdx)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		restaurants = append(restaurants, r)
	}

	if len(restaurants) == 0 {
		return nil, errors.New("corpus is empty")
	}

	return restaurants, nil
}

func parseRestaurant(record []string, colIdx map[string]int) (*models.Restaurant, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[colIdx[name]])
	}

	r := &models.Restaurant{
		ID:          field("id"),
		Name:        field("name"),
		Address:     field("address"),
		City:        field("city"),
		Locality:    field("locality"),
		PriceBucket: field("price_bucket"),
	}

	if r.ID == "" {
		return nil, errors.New("missing id")
	}
	if r.Name == "" {
		return nil, fmt.Errorf("restaurant %s: missing name", r.ID)
	}
	if r.City == "" && r.Locality == "" {
		return nil, fmt.Errorf("restaurant %s: missing city and locality", r.ID)
	}
	if models.PriceBucketIndex(r.PriceBucket) < 0 {
		return nil, fmt.Errorf("restaurant %s: unknown price bucket %q", r.ID, r.PriceBucket)
	}

	if raw := field("avg_cost_for_two"); raw != "" {
		cost, err := strconv.ParseFloat(raw, 64)
		if err != nil || cost < 0 {
			return nil, fmt.Errorf("restaurant %s: invalid avg_cost_for_two %q", r.ID, raw)
		}
		r.AvgCostForTwo = cost
	}

	if raw := field("avg_rating"); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil || rating < 0 || rating > 5 {
			return nil, fmt.Errorf("restaurant %s: invalid avg_rating %q", r.ID, raw)
		}
		r.AvgRating = rating
	}

	for _, c := range strings.Split(field("cuisines"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			r.Cuisines = append(r.Cuisines, c)
		}
	}
	if len(r.Cuisines) == 0 {
		return nil, fmt.Errorf("restaurant %s: no cuisines", r.ID)
	}

	return r, nil
}

// loadEmbeddings reads one JSON float array per line, row i aligned with
// CSV row i.
func loadEmbeddings(path string) ([][]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var embeddings [][]float32
	dims := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var vec []float32
		if err := json.Unmarshal([]byte(text), &vec); err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}
		if len(vec) == 0 {
			return nil, 0, fmt.Errorf("line %d: empty vector", line)
		}
		if dims == 0 {
			dims = len(vec)
		} else if len(vec) != dims {
			return nil, 0, fmt.Errorf("line %d: dimension %d does not match %d", line, len(vec), dims)
		}
		embeddings = append(embeddings, vec)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}

	return embeddings, dims, nil
}
