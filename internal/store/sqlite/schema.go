package sqlite

// Schema is the complete cache schema. Articles carry a composite
// primary key and cascade away with their wiki; the title index backs
// substring search.
const Schema = `
CREATE TABLE IF NOT EXISTS wikis (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    name          TEXT NOT NULL UNIQUE,
    api_url       TEXT NOT NULL,
    auth_username TEXT NOT NULL DEFAULT '',
    auth_password TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS articles (
    wiki_id     INTEGER NOT NULL REFERENCES wikis(id) ON DELETE CASCADE,
    page_id     INTEGER NOT NULL,
    starred     INTEGER NOT NULL DEFAULT 0,
    title       TEXT NOT NULL,
    snippet     TEXT NOT NULL DEFAULT '',
    content     TEXT NOT NULL DEFAULT '',
    thumbnail   BLOB,
    page_url    TEXT NOT NULL DEFAULT '',
    revision_id INTEGER NOT NULL DEFAULT 0,
    checked_at  INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (wiki_id, page_id)
);
CREATE INDEX IF NOT EXISTS idx_articles_title   ON articles(title);
CREATE INDEX IF NOT EXISTS idx_articles_starred ON articles(wiki_id, starred);
`
