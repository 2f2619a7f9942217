package scan

import (
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"chunkscan/anvil"
	"chunkscan/common"
	"chunkscan/output"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS containers (
	source TEXT NOT NULL,
	name   TEXT NOT NULL,
	size   INTEGER NOT NULL,
	mtime  INTEGER NOT NULL,
	coords BLOB,
	PRIMARY KEY (source, name)
);
`

type cacheEntry struct {
	size   int64
	mtime  int64
	coords []byte
}

// Cache remembers coordinates found in containers between runs. Container is
// considered unchanged while its size and modification time stay the same.
//
// Entries are loaded when cache is opened and never change during the scan,
// so Lookup may be called from any goroutine. Put must be called from a
// single goroutine, new entries are written when cache is closed. All methods
// are safe to call on nil Cache which never has anything.
type Cache struct {
	conn   *sqlite.Conn
	source string
	known  map[string]cacheEntry
	fresh  map[string]cacheEntry
	log    *zap.Logger
}

// OpenCache opens (creating if necessary) cache database and loads entries
// belonging to source.
func OpenCache(path, source string, log *zap.Logger) (*Cache, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("unable to open cache database: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, cacheSchema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to prepare cache database: %w", err)
	}

	c := &Cache{
		conn:   conn,
		source: source,
		known:  make(map[string]cacheEntry),
		fresh:  make(map[string]cacheEntry),
		log:    log.Named("cache"),
	}
	err = sqlitex.Execute(conn, `SELECT name, size, mtime, coords FROM containers WHERE source = ?;`,
		&sqlitex.ExecOptions{
			Args: []any{source},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				data, err := io.ReadAll(stmt.ColumnReader(3))
				if err != nil {
					return err
				}
				c.known[stmt.ColumnText(0)] = cacheEntry{
					size:   stmt.ColumnInt64(1),
					mtime:  stmt.ColumnInt64(2),
					coords: data,
				}
				return nil
			}})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to load cache: %w", err)
	}
	c.log.Debug("Cache loaded", zap.String("path", path), zap.String("source", source), zap.Int("entries", len(c.known)))
	return c, nil
}

func fresh(e cacheEntry, ct *anvil.Container) bool {
	return !ct.ModTime.IsZero() && e.size == ct.Size && e.mtime == ct.ModTime.UnixNano()
}

// Lookup returns coordinates recorded for unchanged container.
func (c *Cache) Lookup(ct *anvil.Container) ([]common.ChunkCoord, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.known[ct.Name]
	if !ok || !fresh(e, ct) {
		return nil, false
	}
	coords, err := output.Unmarshal(e.coords)
	if err != nil {
		c.log.Warn("Ignoring damaged cache entry", zap.String("container", ct.Name), zap.Error(err))
		return nil, false
	}
	return coords, true
}

// Put records coordinates found in container.
func (c *Cache) Put(ct *anvil.Container, coords []common.ChunkCoord) {
	if c == nil || ct.ModTime.IsZero() {
		return
	}
	c.fresh[ct.Name] = cacheEntry{
		size:   ct.Size,
		mtime:  ct.ModTime.UnixNano(),
		coords: output.Marshal(coords),
	}
}

// Close writes recorded entries in a single transaction and closes database.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	err := c.flush()
	if len(c.fresh) > 0 && err == nil {
		c.log.Debug("Cache updated", zap.Int("entries", len(c.fresh)))
	}
	return multierr.Append(err, c.conn.Close())
}

func (c *Cache) flush() (err error) {
	if len(c.fresh) == 0 {
		return nil
	}
	defer sqlitex.Save(c.conn)(&err)

	for name, e := range c.fresh {
		err = sqlitex.Execute(c.conn,
			`INSERT OR REPLACE INTO containers (source, name, size, mtime, coords) VALUES (?, ?, ?, ?, ?);`,
			&sqlitex.ExecOptions{Args: []any{c.source, name, e.size, e.mtime, e.coords}})
		if err != nil {
			return fmt.Errorf("unable to update cache: %w", err)
		}
	}
	return nil
}
