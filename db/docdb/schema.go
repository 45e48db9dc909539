package docdb

// The document table is the only writer; metadata and metadata_fts are kept in step by triggers.
// metadata_fts rows share their rowid with metadata.id.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS document (
		id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
		source_domain TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT 0,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		size INTEGER,
		file_type TEXT NOT NULL,
		last_modified INTEGER NOT NULL DEFAULT 0,
		last_opened INTEGER NOT NULL DEFAULT 0,
		last_synced INTEGER NOT NULL DEFAULT 0,
		last_parsed INTEGER NOT NULL DEFAULT 0,
		is_pinned INTEGER NOT NULL DEFAULT 0,
		frecency_rank REAL NOT NULL DEFAULT 0,
		frecency_last_accessed INTEGER NOT NULL DEFAULT 0,
		comment TEXT,
		UNIQUE (source_domain, path)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_document_path ON document(path)`,
	`CREATE INDEX IF NOT EXISTS idx_document_file_type_size ON document(file_type, size)`,

	`CREATE TABLE IF NOT EXISTS metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_table TEXT NOT NULL,
		source_domain TEXT NOT NULL,
		source_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT 0,
		last_modified INTEGER NOT NULL DEFAULT 0,
		frecency_rank REAL NOT NULL DEFAULT 0,
		frecency_last_accessed INTEGER NOT NULL DEFAULT 0,
		comment TEXT,
		extra_tag TEXT NOT NULL DEFAULT '',
		UNIQUE (source_table, source_id)
	)`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS metadata_fts USING fts5(
		source_table UNINDEXED,
		source_domain UNINDEXED,
		source_id UNINDEXED,
		title,
		url,
		comment,
		extra_tag,
		tokenize = 'porter unicode61'
	)`,

	`CREATE TRIGGER IF NOT EXISTS document_after_insert AFTER INSERT ON document BEGIN
		INSERT INTO metadata (source_table, source_domain, source_id, title, url, created_at, last_modified, frecency_rank, frecency_last_accessed, comment, extra_tag)
		VALUES ('document', NEW.source_domain, NEW.id, NEW.name, NEW.path, NEW.created_at, NEW.last_modified, NEW.frecency_rank, NEW.frecency_last_accessed, NEW.comment, NEW.file_type);
	END`,
	`CREATE TRIGGER IF NOT EXISTS document_after_update
	AFTER UPDATE OF source_domain, name, path, created_at, last_modified, frecency_rank, frecency_last_accessed, comment, file_type ON document BEGIN
		UPDATE metadata
		SET source_domain = NEW.source_domain,
			title = NEW.name,
			url = NEW.path,
			created_at = NEW.created_at,
			last_modified = NEW.last_modified,
			frecency_rank = NEW.frecency_rank,
			frecency_last_accessed = NEW.frecency_last_accessed,
			comment = NEW.comment,
			extra_tag = NEW.file_type
		WHERE source_table = 'document' AND source_id = OLD.id;
	END`,
	`CREATE TRIGGER IF NOT EXISTS document_after_delete AFTER DELETE ON document BEGIN
		DELETE FROM metadata WHERE source_table = 'document' AND source_id = OLD.id;
	END`,

	`CREATE TRIGGER IF NOT EXISTS metadata_after_insert AFTER INSERT ON metadata BEGIN
		INSERT INTO metadata_fts (rowid, source_table, source_domain, source_id, title, url, comment, extra_tag)
		VALUES (NEW.id, NEW.source_table, NEW.source_domain, NEW.source_id, NEW.title, NEW.url, NEW.comment, NEW.extra_tag);
	END`,
	`CREATE TRIGGER IF NOT EXISTS metadata_after_update AFTER UPDATE ON metadata BEGIN
		DELETE FROM metadata_fts WHERE rowid = OLD.id;
		INSERT INTO metadata_fts (rowid, source_table, source_domain, source_id, title, url, comment, extra_tag)
		VALUES (NEW.id, NEW.source_table, NEW.source_domain, NEW.source_id, NEW.title, NEW.url, NEW.comment, NEW.extra_tag);
	END`,
	`CREATE TRIGGER IF NOT EXISTS metadata_after_delete AFTER DELETE ON metadata BEGIN
		DELETE FROM metadata_fts WHERE rowid = OLD.id;
	END`,

	`CREATE TABLE IF NOT EXISTS ignore_list (
		path TEXT PRIMARY KEY NOT NULL,
		is_folder INTEGER NOT NULL DEFAULT 0,
		ignore_indexing INTEGER NOT NULL DEFAULT 0,
		ignore_content INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS allow_list (
		path TEXT PRIMARY KEY NOT NULL,
		is_folder INTEGER NOT NULL DEFAULT 0,
		ignore_indexing INTEGER NOT NULL DEFAULT 0,
		ignore_content INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS file_types (
		file_type TEXT PRIMARY KEY NOT NULL,
		file_type_category TEXT NOT NULL,
		file_type_allowed INTEGER NOT NULL DEFAULT 1,
		added_by_user INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS user_preferences (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		first_launch_done INTEGER NOT NULL DEFAULT 0,
		onboarding_done INTEGER NOT NULL DEFAULT 0,
		launch_at_startup INTEGER NOT NULL DEFAULT 1,
		show_in_dock INTEGER NOT NULL DEFAULT 1,
		global_shortcut_enabled INTEGER NOT NULL DEFAULT 1,
		global_shortcut TEXT NOT NULL DEFAULT 'Alt+Space',
		automatic_background_sync INTEGER NOT NULL DEFAULT 1,
		detailed_scan INTEGER NOT NULL DEFAULT 1,
		disallowed_paths TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS app_data (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		app_name TEXT NOT NULL DEFAULT 'Buzee',
		app_version TEXT NOT NULL DEFAULT '0.1.0',
		app_mode TEXT NOT NULL DEFAULT 'window',
		app_theme TEXT NOT NULL DEFAULT 'system',
		app_language TEXT NOT NULL DEFAULT 'en',
		last_scan_time INTEGER NOT NULL DEFAULT 0,
		scan_running INTEGER NOT NULL DEFAULT 0
	)`,
	`INSERT OR IGNORE INTO user_preferences (id) VALUES (1)`,
	`INSERT OR IGNORE INTO app_data (id) VALUES (1)`,
}
