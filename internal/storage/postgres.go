// internal/storage/postgres.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vidshare/vidshare-api-go/internal/metrics"
	"github.com/vidshare/vidshare-api-go/internal/model"
)

// postgres provides persistent storage for accounts, content and likes.
type postgres struct {
	db      *pgxpool.Pool    // Connection pool to PostgreSQL database
	metrics *metrics.Metrics // Storage operation counters
}

// NewPostgres creates a new PostgreSQL storage implementation.
// It establishes a connection pool to the database and initializes the schema.
// Parameters:
//   - dsn: Database connection string in PostgreSQL format
//
// Returns:
//   - Store: Implementation of the storage interface
//   - error: Any error that occurred during initialization
func NewPostgres(dsn string) (Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &postgres{db: pool, metrics: metrics.NewMetrics()}, nil
}

// initSchema creates all required tables and indexes if they don't already exist.
func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	schema := `
		CREATE TABLE IF NOT EXISTS accounts (
		    id TEXT PRIMARY KEY,
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS videos (
		    id TEXT PRIMARY KEY,
		    owner_id TEXT NOT NULL,
		    title TEXT NOT NULL,
		    description TEXT NOT NULL,
		    video_file TEXT NOT NULL,
		    thumbnail TEXT NOT NULL,
		    duration DOUBLE PRECISION NOT NULL DEFAULT 0,
		    is_published BOOLEAN NOT NULL DEFAULT TRUE,
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_videos_owner_created ON videos(owner_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_videos_created ON videos(created_at DESC);

		CREATE TABLE IF NOT EXISTS comments (
		    id TEXT PRIMARY KEY,
		    owner_id TEXT NOT NULL,
		    video_id TEXT NOT NULL,
		    content TEXT NOT NULL,
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_comments_video_created ON comments(video_id, created_at DESC, id DESC);

		CREATE TABLE IF NOT EXISTS tweets (
		    id TEXT PRIMARY KEY,
		    owner_id TEXT NOT NULL,
		    content TEXT NOT NULL,
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_tweets_owner_created ON tweets(owner_id, created_at DESC, id DESC);

		-- videos is an ordered list and may hold the same id twice
		CREATE TABLE IF NOT EXISTS playlists (
		    id TEXT PRIMARY KEY,
		    owner_id TEXT NOT NULL,
		    name TEXT NOT NULL,
		    description TEXT NOT NULL,
		    videos TEXT[] NOT NULL DEFAULT '{}',
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_playlists_owner ON playlists(owner_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS likes (
		    id TEXT PRIMARY KEY,
		    liked_by TEXT NOT NULL,
		    target_kind TEXT NOT NULL CHECK (target_kind IN ('video', 'comment', 'tweet')),
		    target_id TEXT NOT NULL,
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		    UNIQUE (liked_by, target_kind, target_id)
		);

		CREATE TABLE IF NOT EXISTS idempotency (
		    key_hash TEXT PRIMARY KEY,
		    request_hash TEXT NOT NULL,
		    response_body BYTEA NOT NULL,
		    response_status INTEGER NOT NULL,
		    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		    expires_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_idempotency_expires_at ON idempotency(expires_at);
	`

	_, err := db.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool
func (p *postgres) Close() {
	p.db.Close()
}

// observe records the outcome of one storage operation. A miss is not an error.
func (p *postgres) observe(op string, start time.Time, errp *error) {
	status := "success"
	if errp != nil && *errp != nil && !errors.Is(*errp, ErrNotFound) {
		status = "error"
	}
	p.metrics.StorageOperationTotal.WithLabelValues(op, status).Inc()
	p.metrics.StorageOperationDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// one maps a single-row result onto the storage errors.
func one[T any](rows pgx.Rows, err error, what string) (*T, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	v, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	return v, nil
}

// many collects every row of a listing.
func many[T any](rows pgx.Rows, err error, what string) ([]T, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	return out, nil
}

// deleteByID removes one row and reports ErrNotFound when nothing matched.
func (p *postgres) deleteByID(ctx context.Context, table, id string) error {
	tag, err := p.db.Exec(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (p *postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// Account operations

func (p *postgres) EnsureAccount(ctx context.Context, id string) (err error) {
	defer p.observe("ensure_account", time.Now(), &err)

	_, err = p.db.Exec(ctx, `INSERT INTO accounts (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id)
	if err != nil {
		return fmt.Errorf("failed to ensure account: %w", err)
	}
	return nil
}

func (p *postgres) AccountExists(ctx context.Context, id string) (exists bool, err error) {
	defer p.observe("account_exists", time.Now(), &err)

	err = p.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return exists, nil
}

// Video operations

const videoColumns = `id, owner_id, title, description, video_file, thumbnail, duration, is_published, created_at, updated_at`

func (p *postgres) CreateVideo(ctx context.Context, v model.Video) (err error) {
	defer p.observe("create_video", time.Now(), &err)

	_, err = p.db.Exec(ctx, `INSERT INTO videos (`+videoColumns+`)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		v.ID, v.Owner, v.Title, v.Description, v.VideoFile, v.Thumbnail,
		v.Duration, v.IsPublished, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

func (p *postgres) GetVideo(ctx context.Context, id string) (v *model.Video, err error) {
	defer p.observe("get_video", time.Now(), &err)

	rows, err := p.db.Query(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	return one[model.Video](rows, err, "get video")
}

// videoFilter builds the WHERE clause shared by ListVideos and CountVideos.
func videoFilter(q model.ListVideosQuery) (string, []interface{}) {
	where := []string{"(is_published OR owner_id = $1)"}
	args := []interface{}{q.Viewer}

	if q.OwnerID != "" {
		args = append(args, q.OwnerID)
		where = append(where, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// escapeLike neutralizes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (p *postgres) ListVideos(ctx context.Context, q model.ListVideosQuery) (videos []model.Video, err error) {
	defer p.observe("list_videos", time.Now(), &err)

	where, args := videoFilter(q)
	dir := "DESC"
	if q.Ascending {
		dir = "ASC"
	}
	args = append(args, q.Skip, q.Limit)
	query := fmt.Sprintf(`SELECT %s FROM videos%s ORDER BY %s %s, id %s OFFSET $%d LIMIT $%d`,
		videoColumns, where, videoSortColumn(q.SortBy), dir, dir, len(args)-1, len(args))

	rows, err := p.db.Query(ctx, query, args...)
	return many[model.Video](rows, err, "list videos")
}

func (p *postgres) CountVideos(ctx context.Context, q model.ListVideosQuery) (n int64, err error) {
	defer p.observe("count_videos", time.Now(), &err)

	where, args := videoFilter(q)
	if err = p.db.QueryRow(ctx, `SELECT COUNT(*) FROM videos`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count videos: %w", err)
	}
	return n, nil
}

func (p *postgres) UpdateVideo(ctx context.Context, id string, patch VideoPatch) (v *model.Video, err error) {
	defer p.observe("update_video", time.Now(), &err)

	rows, err := p.db.Query(ctx, `UPDATE videos SET
	              title = COALESCE($2, title),
	              description = COALESCE($3, description),
	              thumbnail = COALESCE($4, thumbnail),
	              is_published = COALESCE($5, is_published),
	              updated_at = NOW()
	          WHERE id = $1 RETURNING `+videoColumns,
		id, patch.Title, patch.Description, patch.Thumbnail, patch.IsPublished)
	return one[model.Video](rows, err, "update video")
}

func (p *postgres) DeleteVideo(ctx context.Context, id string) (err error) {
	defer p.observe("delete_video", time.Now(), &err)
	return p.deleteByID(ctx, "videos", id)
}

// Comment operations

const commentColumns = `id, owner_id, video_id, content, created_at, updated_at`

func (p *postgres) CreateComment(ctx context.Context, c model.Comment) (err error) {
	defer p.observe("create_comment", time.Now(), &err)

	_, err = p.db.Exec(ctx, `INSERT INTO comments (`+commentColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Owner, c.Video, c.Content, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (p *postgres) GetComment(ctx context.Context, id string) (c *model.Comment, err error) {
	defer p.observe("get_comment", time.Now(), &err)

	rows, err := p.db.Query(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	return one[model.Comment](rows, err, "get comment")
}

func (p *postgres) ListComments(ctx context.Context, videoID string, q model.ListQuery) (comments []model.Comment, err error) {
	defer p.observe("list_comments", time.Now(), &err)

	rows, err := p.db.Query(ctx, `SELECT `+commentColumns+` FROM comments WHERE video_id = $1
	          ORDER BY created_at DESC, id DESC OFFSET $2 LIMIT $3`, videoID, q.Skip, q.Limit)
	return many[model.Comment](rows, err, "list comments")
}

func (p *postgres) CountComments(ctx context.Context, videoID string) (n int64, err error) {
	defer p.observe("count_comments", time.Now(), &err)

	if err = p.db.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE video_id = $1`, videoID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}

func (p *postgres) UpdateComment(ctx context.Context, id, content string) (c *model.Comment, err error) {
	defer p.observe("update_comment", time.Now(), &err)

	rows, err := p.db.Query(ctx, `UPDATE comments SET content = $2, updated_at = NOW()
	          WHERE id = $1 RETURNING `+commentColumns, id, content)
	return one[model.Comment](rows, err, "update comment")
}

func (p *postgres) DeleteComment(ctx context.Context, id string) (err error) {
	defer p.observe("delete_comment", time.Now(), &err)
	return p.deleteByID(ctx, "comments", id)
}

// Tweet operations

const tweetColumns = `id, owner_id, content, created_at, updated_at`

func (p *postgres) CreateTweet(ctx context.Context, t model.Tweet) (err error) {
	defer p.observe("create_tweet", time.Now(), &err)

	_, err = p.db.Exec(ctx, `INSERT INTO tweets (`+tweetColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Owner, t.Content, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create tweet: %w", err)
	}
	return nil
}

func (p *postgres) GetTweet(ctx context.Context, id string) (t *model.Tweet, err error) {
	defer p.observe("get_tweet", time.Now(), &err)

	rows, err := p.db.Query(ctx, `SELECT `+tweetColumns+` FROM tweets WHERE id = $1`, id)
	return one[model.Tweet](rows, err, "get tweet")
}

func (p *postgres) ListTweets(ctx context.Context, ownerID string, q model.ListQuery) (tweets []model.Tweet, err error) {
	defer p.observe("list_tweets", time.Now(), &err)

	rows, err := p.db.Query(ctx, `SELECT `+tweetColumns+` FROM tweets WHERE owner_id = $1
	          ORDER BY created_at DESC, id DESC OFFSET $2 LIMIT $3`, ownerID, q.Skip, q.Limit)
	return many[model.Tweet](rows, err, "list tweets")
}

func (p *postgres) CountTweets(ctx context.Context, ownerID string) (n int64, err error) {
	defer p.observe("count_tweets", time.Now(), &err)

	if err = p.db.QueryRow(ctx, `SELECT COUNT(*) FROM tweets WHERE owner_id = $1`, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tweets: %w", err)
	}
	return n, nil
}

func (p *postgres) UpdateTweet(ctx context.Context, id, content string) (t *model.Tweet, err error) {
	defer p.observe("update_tweet", time.Now(), &err)

	rows, err := p.db.Query(ctx, `UPDATE tweets SET content = $2, updated_at = NOW()
	          WHERE id = $1 RETURNING `+tweetColumns, id, content)
	return one[model.Tweet](rows, err, "update tweet")
}

func (p *postgres) DeleteTweet(ctx context.Context, id string) (err error) {
	defer p.observe("delete_tweet", time.Now(), &err)
	return p.deleteByID(ctx, "tweets", id)
}

// Playlist operations

const playlistColumns = `id, owner_id, name, description, videos, created_at, updated_at`

func (p *postgres) CreatePlaylist(ctx context.Context, pl model.Playlist) (err error) {
	defer p.observe("create_playlist", time.Now(), &err)

	videos := pl.Videos
	if videos == nil {
		videos = []string{}
	}
	_, err = p.db.Exec(ctx, `INSERT INTO playlists (`+playlistColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pl.ID, pl.Owner, pl.Name, pl.Description, videos, pl.CreatedAt, pl.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create playlist: %w", err)
	}
	return nil
}

func (p *postgres) GetPlaylist(ctx context.Context, id string) (pl *model.Playlist, err error) {
	defer p.observe("get_playlist", time.Now(), &err)

	rows, err := p.db.Query(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE id = $1`, id)
	return one[model.Playlist](rows, err, "get playlist")
}

func (p *postgres) ListPlaylists(ctx context.Context, ownerID string) (pls []model.Playlist, err error) {
	defer p.observe("list_playlists", time.Now(), &err)

	rows, err := p.db.Query(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE owner_id = $1
	          ORDER BY created_at DESC, id DESC`, ownerID)
	return many[model.Playlist](rows, err, "list playlists")
}

func (p *postgres) UpdatePlaylist(ctx context.Context, id, name, description string) (pl *model.Playlist, err error) {
	defer p.observe("update_playlist", time.Now(), &err)

	rows, err := p.db.Query(ctx, `UPDATE playlists SET name = $2, description = $3, updated_at = NOW()
	          WHERE id = $1 RETURNING `+playlistColumns, id, name, description)
	return one[model.Playlist](rows, err, "update playlist")
}

func (p *postgres) DeletePlaylist(ctx context.Context, id string) (err error) {
	defer p.observe("delete_playlist", time.Now(), &err)
	return p.deleteByID(ctx, "playlists", id)
}

func (p *postgres) PushPlaylistVideo(ctx context.Context, id, videoID string) (pl *model.Playlist, err error) {
	defer p.observe("push_playlist_video", time.Now(), &err)

	rows, err := p.db.Query(ctx, `UPDATE playlists SET videos = array_append(videos, $2), updated_at = NOW()
	          WHERE id = $1 RETURNING `+playlistColumns, id, videoID)
	return one[model.Playlist](rows, err, "add playlist video")
}

func (p *postgres) PullPlaylistVideo(ctx context.Context, id, videoID string) (pl *model.Playlist, err error) {
	defer p.observe("pull_playlist_video", time.Now(), &err)

	rows, err := p.db.Query(ctx, `UPDATE playlists SET videos = array_remove(videos, $2), updated_at = NOW()
	          WHERE id = $1 RETURNING `+playlistColumns, id, videoID)
	return one[model.Playlist](rows, err, "remove playlist video")
}

// Like operations

// ToggleLike deletes the like if present, otherwise inserts it, in one transaction.
// The unique key on (liked_by, target_kind, target_id) keeps concurrent inserts
// from producing a second row.
func (p *postgres) ToggleLike(ctx context.Context, like model.Like) (liked bool, err error) {
	defer p.observe("toggle_like", time.Now(), &err)

	err = pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM likes WHERE liked_by = $1 AND target_kind = $2 AND target_id = $3`,
			like.LikedBy, string(like.Kind), like.TargetID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			liked = false
			return nil
		}
		_, err = tx.Exec(ctx, `INSERT INTO likes (id, liked_by, target_kind, target_id, created_at)
		          VALUES ($1, $2, $3, $4, $5)
		          ON CONFLICT (liked_by, target_kind, target_id) DO NOTHING`,
			like.ID, like.LikedBy, string(like.Kind), like.TargetID, like.CreatedAt)
		liked = true
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to toggle like: %w", err)
	}
	return liked, nil
}

func (p *postgres) ListLikedVideos(ctx context.Context, userID string) (videos []model.Video, err error) {
	defer p.observe("list_liked_videos", time.Now(), &err)

	rows, err := p.db.Query(ctx, `SELECT v.id, v.owner_id, v.title, v.description, v.video_file, v.thumbnail,
	              v.duration, v.is_published, v.created_at, v.updated_at
	          FROM likes l JOIN videos v ON v.id = l.target_id
	          WHERE l.liked_by = $1 AND l.target_kind = 'video'
	          ORDER BY l.created_at DESC, l.id DESC`, userID)
	return many[model.Video](rows, err, "list liked videos")
}

// Idempotency operations

// StoreIdempotentResponse stores an idempotent response in the database.
// A live entry for the same key with a different request hash is a conflict.
func (p *postgres) StoreIdempotentResponse(ctx context.Context, keyHash, requestHash string, responseBody []byte, statusCode int, expiresAt time.Time) (err error) {
	defer p.observe("store_idempotent_response", time.Now(), &err)

	tag, err := p.db.Exec(ctx, `INSERT INTO idempotency (key_hash, request_hash, response_body, response_status, created_at, expires_at)
	          VALUES ($1, $2, $3, $4, NOW(), $5)
	          ON CONFLICT (key_hash) DO UPDATE
	          SET request_hash = EXCLUDED.request_hash, response_body = EXCLUDED.response_body,
	              response_status = EXCLUDED.response_status, created_at = NOW(), expires_at = EXCLUDED.expires_at
	          WHERE idempotency.request_hash = EXCLUDED.request_hash OR idempotency.expires_at <= NOW()`,
		keyHash, requestHash, responseBody, statusCode, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// GetIdempotentResponse retrieves a live cached response.
func (p *postgres) GetIdempotentResponse(ctx context.Context, keyHash string) (resp *IdempotentResponse, err error) {
	defer p.observe("get_idempotent_response", time.Now(), &err)

	var r IdempotentResponse
	err = p.db.QueryRow(ctx, `SELECT request_hash, response_body, response_status, expires_at FROM idempotency
	          WHERE key_hash = $1 AND expires_at > NOW()`, keyHash).
		Scan(&r.RequestHash, &r.ResponseBody, &r.StatusCode, &r.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get idempotent response: %w", err)
	}
	return &r, nil
}
