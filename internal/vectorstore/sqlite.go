package vectorstore

import (
	"container/heap"
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ametel/vidrank/internal/llm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Compile-time check that SQLiteIndex implements Index.
var _ Index = (*SQLiteIndex)(nil)

// SQLiteIndex provides vector storage and brute-force cosine similarity
// search backed by SQLite. It is the default Index implementation; remote
// Chroma (chroma.go) is the alternative for shared deployments.
//
// Brute-force scan is fine at feedback-history scale (hundreds to low
// thousands of rows). Revisit if a single profile ever exceeds ~100K docs.
type SQLiteIndex struct {
	db       *sql.DB
	embedder llm.Embedder
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (tests).
func Open(dataDir string, embedder llm.Embedder) (*SQLiteIndex, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "vidrank.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &SQLiteIndex{db: db, embedder: embedder}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *SQLiteIndex) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// Insert embeds every document and stores them in one transaction.
func (s *SQLiteIndex) Insert(ctx context.Context, docs []Document, ids []string) error {
	if len(docs) != len(ids) {
		return fmt.Errorf("documents and ids length mismatch: %d != %d", len(docs), len(ids))
	}
	if len(docs) == 0 {
		return nil
	}

	vectors, err := embedAll(ctx, s.embedder, docs)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO feedback_documents (id, content, action, video_id, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		createdAt := doc.Metadata[MetaCreatedAt]
		if createdAt == "" {
			createdAt = time.Now().UTC().Format(time.RFC3339)
		}
		blob := encodeFloat32s(vectors[i])
		if _, err := stmt.ExecContext(ctx, ids[i], doc.Content, doc.Metadata[MetaAction], doc.Metadata[MetaVideoID], blob, createdAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting document %s: %w", ids[i], err)
		}
	}

	return tx.Commit()
}

// idScore holds only the ID and score during the scan phase of a search.
// Full document details are fetched only for top-K winners.
type idScore struct {
	ID    string
	Score float32
}

// SearchByVector performs brute-force cosine similarity search, optionally
// filtered by metadata equality (action, videoId).
func (s *SQLiteIndex) SearchByVector(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]ScoredDocument, error) {
	where, args := buildFilter(filter)

	// Phase 1: scan only id + embedding to find top-K candidates.
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM feedback_documents`+where, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	queryNorm := norm(vector)
	if queryNorm == 0 {
		return nil, nil
	}

	h := &idScoreHeap{}
	heap.Init(h)

	// Reusable buffer for decoding embeddings to avoid per-row allocations.
	var buf []float32

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", id, err)
		}

		score := dotProduct(vector, buf, queryNorm)
		if h.Len() < topK {
			heap.Push(h, idScore{ID: id, Score: score})
		} else if score > (*h)[0].Score {
			(*h)[0] = idScore{ID: id, Score: score}
			heap.Fix(h, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	if h.Len() == 0 {
		return nil, nil
	}

	// Phase 2: fetch full documents only for the top-K IDs.
	topIDs := make([]string, h.Len())
	scores := make(map[string]float32, h.Len())
	for i := len(topIDs) - 1; i >= 0; i-- {
		item := heap.Pop(h).(idScore)
		topIDs[i] = item.ID
		scores[item.ID] = item.Score
	}

	queryArgs := make([]interface{}, len(topIDs))
	for i, id := range topIDs {
		queryArgs[i] = id
	}
	fullQuery := `SELECT id, content, action, video_id, created_at
		FROM feedback_documents WHERE id IN (?` + strings.Repeat(",?", len(topIDs)-1) + `)`

	fullRows, err := s.db.QueryContext(ctx, fullQuery, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("fetching top-K documents: %w", err)
	}
	defer fullRows.Close()

	var results []ScoredDocument
	for fullRows.Next() {
		doc, err := scanDocument(fullRows)
		if err != nil {
			return nil, err
		}
		results = append(results, ScoredDocument{Document: doc, Score: scores[doc.ID]})
	}
	if err := fullRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating full documents: %w", err)
	}

	// Sort results by score descending (IN query doesn't preserve order).
	sortByScore(results)

	return results, nil
}

// SearchByText embeds the query and delegates to SearchByVector. An empty
// query skips embedding entirely and returns the newest topK documents.
func (s *SQLiteIndex) SearchByText(ctx context.Context, query string, topK int, filter map[string]string) ([]Document, error) {
	if query == "" {
		where, args := buildFilter(filter)
		args = append(args, topK)
		rows, err := s.db.QueryContext(ctx, `SELECT id, content, action, video_id, created_at
			FROM feedback_documents`+where+` ORDER BY created_at DESC LIMIT ?`, args...)
		if err != nil {
			return nil, fmt.Errorf("querying documents: %w", err)
		}
		defer rows.Close()

		var docs []Document
		for rows.Next() {
			doc, err := scanDocument(rows)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		return docs, rows.Err()
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	scored, err := s.SearchByVector(ctx, vec, topK, filter)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, len(scored))
	for i, sd := range scored {
		docs[i] = sd.Document
	}
	return docs, nil
}

// Count returns the number of stored documents.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback_documents").Scan(&count)
	return count, err
}

// buildFilter translates metadata equality filters into a WHERE clause.
// Only known metadata keys are honored; unknown keys are ignored.
func buildFilter(filter map[string]string) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if v, ok := filter[MetaAction]; ok {
		clauses = append(clauses, "action = ?")
		args = append(args, v)
	}
	if v, ok := filter[MetaVideoID]; ok {
		clauses = append(clauses, "video_id = ?")
		args = append(args, v)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(rows rowScanner) (Document, error) {
	var doc Document
	var action, videoID, createdAt string
	if err := rows.Scan(&doc.ID, &doc.Content, &action, &videoID, &createdAt); err != nil {
		return Document{}, fmt.Errorf("scanning document: %w", err)
	}
	doc.Metadata = map[string]string{
		MetaAction:    action,
		MetaVideoID:   videoID,
		MetaCreatedAt: createdAt,
	}
	return doc, nil
}

// sortByScore sorts ScoredDocuments by Score descending. Used for small slices (topK).
func sortByScore(results []ScoredDocument) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32sInto decodes little-endian bytes into the provided buffer,
// reusing it to avoid per-row allocations during search scans.
func decodeFloat32sInto(buf []float32, b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	if cap(buf) < n {
		buf = make([]float32, n)
	} else {
		buf = buf[:n]
	}
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return buf, nil
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// dotProduct computes cosine similarity as dot(a,b) / (aNorm * bNorm).
// aNorm is the precomputed L2 norm of vector a.
func dotProduct(a, b []float32, aNorm float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	var bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * bNorm))
}

// idScoreHeap is a min-heap of idScore ordered by Score.
// Used during the scan phase of SearchByVector to track top-K candidates.
type idScoreHeap []idScore

func (h idScoreHeap) Len() int            { return len(h) }
func (h idScoreHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h idScoreHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idScoreHeap) Push(x interface{}) { *h = append(*h, x.(idScore)) }
func (h *idScoreHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
