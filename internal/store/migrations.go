package store

const createTableSQL = `
CREATE TABLE IF NOT EXISTS reports (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    report_id       TEXT NOT NULL DEFAULT '',
    hostname        TEXT NOT NULL,
    system_uuid     TEXT NOT NULL DEFAULT '',
    system_serial   TEXT NOT NULL DEFAULT '',
    devices         INTEGER NOT NULL DEFAULT 0,
    at_risk         INTEGER NOT NULL DEFAULT 0,
    target_at_risk  INTEGER NOT NULL DEFAULT 0,
    collected_at    TEXT NOT NULL,
    stored_at       TEXT NOT NULL,
    report_json     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_hostname ON reports(hostname);
CREATE INDEX IF NOT EXISTS idx_reports_system_uuid ON reports(system_uuid);
CREATE INDEX IF NOT EXISTS idx_reports_collected_at ON reports(collected_at);
CREATE INDEX IF NOT EXISTS idx_reports_at_risk ON reports(at_risk);
`
