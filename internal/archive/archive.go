package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned when no snapshot, file or image matches a lookup.
	ErrNotFound = errors.New("archive entry not found")
	// ErrIndexOutOfRange is returned for an image index outside the listing.
	ErrIndexOutOfRange = errors.New("image index out of range")
)

const (
	jsonDir   = "JSON"
	mapsDir   = "Mapas"
	generalID = "general"

	stormsPattern = "tormentas*.json"
	stormPrefix   = "tormenta_"
	generalMaps   = "mapa_*.png"
)

// Snapshot is one pre-computed archive folder, named like 20251103_114143.
type Snapshot struct {
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
	path      string
}

// Path returns the folder location on disk.
func (s Snapshot) Path() string {
	return s.path
}

// Image is one entry of an ordered image listing.
type Image struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	path     string
}

// Archive serves read-only lookups over a root of snapshot folders.
type Archive struct {
	root string
}

// New creates an Archive rooted at dir.
func New(dir string) *Archive {
	return &Archive{root: dir}
}

// Root returns the archive directory.
func (a *Archive) Root() string {
	return a.root
}

// ParseTimestamp turns a folder name like 20251103_114143 into 20251103114143.
// Names without an underscore, shorter than 15 characters or not numeric rank 0.
func ParseTimestamp(name string) int64 {
	if !strings.Contains(name, "_") || len(name) < 15 {
		return 0
	}
	ts, err := strconv.ParseInt(strings.ReplaceAll(name, "_", ""), 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

// snapshots lists every folder under root, sorted by name.
func (a *Archive) snapshots(match func(name string) bool) ([]Snapshot, error) {
	entries, err := os.ReadDir(a.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read archive root: %w", err)
	}

	var out []Snapshot
	for _, e := range entries {
		if !e.IsDir() || (match != nil && !match(e.Name())) {
			continue
		}
		out = append(out, Snapshot{
			Name:      e.Name(),
			Timestamp: ParseTimestamp(e.Name()),
			path:      filepath.Join(a.root, e.Name()),
		})
	}
	return out, nil
}

// newest picks the snapshot with the largest timestamp; the first one wins ties.
func newest(snaps []Snapshot) (Snapshot, error) {
	if len(snaps) == 0 {
		return Snapshot{}, ErrNotFound
	}
	best := snaps[0]
	for _, s := range snaps[1:] {
		if s.Timestamp > best.Timestamp {
			best = s
		}
	}
	return best, nil
}

// Latest returns the most recent snapshot folder.
func (a *Archive) Latest() (Snapshot, error) {
	snaps, err := a.snapshots(nil)
	if err != nil {
		return Snapshot{}, err
	}
	return newest(snaps)
}

// ByDate returns the most recent snapshot whose name contains date.
func (a *Archive) ByDate(date string) (Snapshot, error) {
	snaps, err := a.snapshots(func(name string) bool { return strings.Contains(name, date) })
	if err != nil {
		return Snapshot{}, err
	}
	return newest(snaps)
}

// StormsJSON returns every JSON document of the snapshot for date, keyed by file stem.
// Files that fail to parse are reported inline instead of failing the listing.
func (a *Archive) StormsJSON(date string) (Snapshot, map[string]json.RawMessage, error) {
	snap, err := a.ByDate(date)
	if err != nil {
		return Snapshot{}, nil, err
	}

	files, err := filepath.Glob(filepath.Join(snap.path, jsonDir, "*.json"))
	if err != nil {
		return Snapshot{}, nil, err
	}
	if len(files) == 0 {
		return snap, nil, ErrNotFound
	}

	docs := make(map[string]json.RawMessage, len(files))
	for _, f := range files {
		stem := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		b, err := os.ReadFile(f)
		if err == nil && !json.Valid(b) {
			err = errors.New("invalid JSON")
		}
		if err != nil {
			msg, _ := json.Marshal(map[string]string{"error": fmt.Sprintf("could not load file: %v", err)})
			docs[stem] = msg
			continue
		}
		docs[stem] = b
	}
	return snap, docs, nil
}

func imagePattern(scope string) string {
	if scope == generalID {
		return generalMaps
	}
	return "*" + scope + "*.png"
}

func (a *Archive) imagePaths(date, scope string) ([]string, error) {
	if unsafeName(date, scope) {
		return nil, ErrNotFound
	}
	snaps, err := a.snapshots(func(name string) bool { return strings.Contains(name, date) })
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, s := range snaps {
		matches, err := filepath.Glob(filepath.Join(s.path, mapsDir, imagePattern(scope)))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, ErrNotFound
	}
	sort.Strings(paths)
	return paths, nil
}

// ListImages returns the ordered PNG listing for date. Scope "general" selects the
// overview maps; any other scope selects the maps of that storm id.
func (a *Archive) ListImages(date, scope string) ([]Image, error) {
	paths, err := a.imagePaths(date, scope)
	if err != nil {
		return nil, err
	}
	images := make([]Image, len(paths))
	for i, p := range paths {
		images[i] = Image{Index: i, Filename: filepath.Base(p), path: p}
	}
	return images, nil
}

// ImageByIndex returns the bytes of the index-th image of the listing.
func (a *Archive) ImageByIndex(date, scope string, index int) ([]byte, error) {
	paths, err := a.imagePaths(date, scope)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(paths) {
		return nil, fmt.Errorf("%w: %d of %d images", ErrIndexOutOfRange, index, len(paths))
	}
	return os.ReadFile(paths[index])
}

// Document is a single JSON file read from a snapshot.
type Document struct {
	Snapshot Snapshot
	File     string
	Data     json.RawMessage
}

// unsafeName reports whether a caller-supplied fragment could escape its folder.
func unsafeName(parts ...string) bool {
	for _, p := range parts {
		if strings.ContainsAny(p, `/\`) || strings.Contains(p, "..") {
			return true
		}
	}
	return false
}

func readDocument(snap Snapshot, path string) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if !json.Valid(b) {
		return Document{}, fmt.Errorf("read %s: invalid JSON", filepath.Base(path))
	}
	return Document{Snapshot: snap, File: filepath.Base(path), Data: b}, nil
}

// lastMatch returns the last path, in name order, matching pattern inside dir.
func lastMatch(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", ErrNotFound
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// LatestStorms returns the newest general storms document of the latest snapshot.
func (a *Archive) LatestStorms() (Document, error) {
	snap, err := a.Latest()
	if err != nil {
		return Document{}, err
	}
	path, err := lastMatch(filepath.Join(snap.path, jsonDir), stormsPattern)
	if err != nil {
		return Document{}, err
	}
	return readDocument(snap, path)
}

// StormByID returns tormenta_<id>.json from the latest snapshot.
func (a *Archive) StormByID(id string) (Document, error) {
	if id == "" || unsafeName(id) {
		return Document{}, ErrNotFound
	}
	snap, err := a.Latest()
	if err != nil {
		return Document{}, err
	}
	return readDocument(snap, filepath.Join(snap.path, jsonDir, stormPrefix+id+".json"))
}

// StormByDate returns the document of storm id in the snapshot for date. The exact
// tormenta_<id>.json name wins; otherwise the first file containing id is used.
func (a *Archive) StormByDate(date, id string) (Document, error) {
	if id == "" || unsafeName(date, id) {
		return Document{}, ErrNotFound
	}
	snap, err := a.ByDate(date)
	if err != nil {
		return Document{}, err
	}

	dir := filepath.Join(snap.path, jsonDir)
	doc, err := readDocument(snap, filepath.Join(dir, stormPrefix+id+".json"))
	if !errors.Is(err, ErrNotFound) {
		return doc, err
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*"+id+"*.json"))
	if err != nil {
		return Document{}, err
	}
	if len(matches) == 0 {
		return Document{}, ErrNotFound
	}
	sort.Strings(matches)
	return readDocument(snap, matches[0])
}

// LatestGeneralMap returns the newest overview map of the latest snapshot.
func (a *Archive) LatestGeneralMap() ([]byte, error) {
	snap, err := a.Latest()
	if err != nil {
		return nil, err
	}
	path, err := lastMatch(filepath.Join(snap.path, mapsDir), generalMaps)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// LatestStormMap returns <id>.png from the latest snapshot.
func (a *Archive) LatestStormMap(id string) ([]byte, error) {
	if id == "" || unsafeName(id) {
		return nil, ErrNotFound
	}
	snap, err := a.Latest()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(snap.path, mapsDir, id+".png"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}
