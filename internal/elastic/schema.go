package elastic

// Index mappings for the two document stores. The commits index supports
// both BM25 full-text search and quantized HNSW vector search over message
// embeddings; the files index stores derived per-file analytics.

// commitIndexMapping backs hybrid search: full-text on message and author,
// kNN on message_embedding, nested file changes for path filtering.
const commitIndexMapping = `{
  "mappings": {
    "properties": {
      "sha": {"type": "keyword"},
      "author_name": {
        "type": "text",
        "fields": {"keyword": {"type": "keyword"}}
      },
      "author_email": {"type": "keyword"},
      "committer_name": {
        "type": "text",
        "fields": {"keyword": {"type": "keyword"}}
      },
      "committer_email": {"type": "keyword"},
      "commit_date": {"type": "date"},
      "message": {"type": "text", "analyzer": "standard"},
      "message_embedding": {
        "type": "dense_vector",
        "dims": 1024,
        "similarity": "cosine",
        "index": true,
        "index_options": {
          "type": "int8_hnsw",
          "m": 16,
          "ef_construction": 100
        }
      },
      "repo_url": {"type": "keyword"},
      "repo_name": {"type": "keyword"},
      "files_changed": {
        "type": "nested",
        "properties": {
          "path": {
            "type": "text",
            "fields": {"keyword": {"type": "keyword"}}
          },
          "change_type": {"type": "keyword"},
          "additions": {"type": "integer"},
          "deletions": {"type": "integer"}
        }
      },
      "total_additions": {"type": "integer"},
      "total_deletions": {"type": "integer"},
      "files_count": {"type": "integer"},
      "parent_shas": {"type": "keyword"},
      "indexed_at": {"type": "date"}
    }
  }
}`

// filesIndexMapping stores per-file analytics. co_change_scores is stored
// but not indexed: it is a map keyed by arbitrary file paths, and mapping
// every path as a field would explode the field count.
const filesIndexMapping = `{
  "mappings": {
    "properties": {
      "file_path": {"type": "keyword"},
      "repo_id": {"type": "keyword"},
      "extension": {"type": "keyword"},
      "is_test_file": {"type": "boolean"},
      "owners": {
        "type": "nested",
        "properties": {
          "author": {"type": "keyword"},
          "author_name": {"type": "text"},
          "commit_count": {"type": "integer"},
          "last_touched": {"type": "date"},
          "lines_changed": {"type": "integer"}
        }
      },
      "co_change_scores": {"type": "object", "enabled": false},
      "test_dependencies": {"type": "keyword"},
      "tests_for_files": {"type": "keyword"},
      "recent_churn": {"type": "integer"},
      "total_commits": {"type": "integer"},
      "avg_change_size": {"type": "float"},
      "first_seen": {"type": "date"},
      "last_modified": {"type": "date"},
      "build_id": {"type": "keyword"},
      "indexed_at": {"type": "date"}
    }
  }
}`
