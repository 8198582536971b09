// Package telemetry keeps a local sqlite history of link traffic and servo
// state for post-hoc diagnosis. It is not configuration storage; nothing in
// here feeds back into behaviour.
package telemetry

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the telemetry database at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS commands (
			kind TEXT,
			raw TEXT,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS servo_state (
			yaw_deg DOUBLE,
			pitch_deg DOUBLE,
			yaw_pulse_us INTEGER,
			pitch_pulse_us INTEGER,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// RecordCommand stores one received command line.
func (db *DB) RecordCommand(kind, raw string) error {
	_, err := db.Exec("INSERT INTO commands (kind, raw) VALUES (?, ?)", kind, raw)
	return err
}

// RecordServoState stores a servo snapshot.
func (db *DB) RecordServoState(yawDeg, pitchDeg float64, yawPulseUs, pitchPulseUs uint32) error {
	_, err := db.Exec(
		"INSERT INTO servo_state (yaw_deg, pitch_deg, yaw_pulse_us, pitch_pulse_us) VALUES (?, ?, ?, ?)",
		yawDeg, pitchDeg, yawPulseUs, pitchPulseUs)
	return err
}

// CommandRecord is one stored command.
type CommandRecord struct {
	Kind string
	Raw  string
}

func (c CommandRecord) String() string {
	return fmt.Sprintf("Kind: %s, Raw: %s", c.Kind, c.Raw)
}

// RecentCommands returns up to limit stored commands, newest first.
func (db *DB) RecentCommands(limit int) ([]CommandRecord, error) {
	rows, err := db.Query("SELECT kind, raw FROM commands ORDER BY rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CommandRecord
	for rows.Next() {
		var r CommandRecord
		if err := rows.Scan(&r.Kind, &r.Raw); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
