package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/evtele/easee/log2"
	"github.com/juju/errors"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
create table if not exists observations (
	id integer primary key autoincrement,
	charger_id text not null,
	code integer not null,
	name text not null,
	value text not null,
	time text not null
);
create index if not exists observations_charger_name_time on observations(charger_id, name, time);
`

// SQLite records every observation, value column keeps JSON text.
type SQLite struct {
	log    *log2.Log
	db     *sql.DB
	insert *sql.Stmt
}

// Readers and the writer may use separate handles on one file.
const sqliteBusyTimeoutMs = 5000

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", path, sep, sqliteBusyTimeoutMs)
}

func OpenSQLite(ctx context.Context, path string, log *log2.Log) (*SQLite, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, errors.Annotatef(err, "sink sqlite open path=%s", path)
	}
	// single writer, sqlite locks whole file anyway
	db.SetMaxOpenConns(1)
	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Annotatef(err, "sink sqlite schema path=%s", path)
	}
	insert, err := db.PrepareContext(ctx, `insert into observations (charger_id, code, name, value, time) values (?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, errors.Annotate(err, "sink sqlite prepare")
	}
	log.Debugf("sink sqlite path=%s", path)
	return &SQLite{log: log, db: db, insert: insert}, nil
}

func (self *SQLite) Deliver(ctx context.Context, r Record) error {
	_, err := self.insert.ExecContext(ctx, r.ChargerID, int(r.Code), r.Name, string(r.Value), r.Time.UTC().Format(time.RFC3339Nano))
	return errors.Annotatef(err, "sink sqlite insert charger=%s name=%s", r.ChargerID, r.Name)
}

// Latest returns most recent record of every observation name of charger, ordered by name.
func (self *SQLite) Latest(ctx context.Context, chargerID string) ([]Record, error) {
	rows, err := self.db.QueryContext(ctx, `
select o.charger_id, o.code, o.name, o.value, o.time from observations o
where o.charger_id = ? and o.id = (
	select max(id) from observations where charger_id = o.charger_id and name = o.name)
order by o.name`, chargerID)
	if err != nil {
		return nil, errors.Annotatef(err, "sink sqlite latest charger=%s", chargerID)
	}
	defer rows.Close()
	rs := make([]Record, 0)
	for rows.Next() {
		var r Record
		var code int
		var value, ts string
		if err = rows.Scan(&r.ChargerID, &code, &r.Name, &value, &ts); err != nil {
			return nil, errors.Annotate(err, "sink sqlite scan")
		}
		r.Code = uint16(code)
		r.Value = []byte(value)
		if r.Time, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, errors.Annotatef(err, "sink sqlite time=%s", ts)
		}
		rs = append(rs, r)
	}
	return rs, errors.Annotate(rows.Err(), "sink sqlite rows")
}

func (self *SQLite) Close() error {
	self.insert.Close()
	return errors.Annotate(self.db.Close(), "sink sqlite close")
}
