package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/huangang/taskboard/internal/config"
	"github.com/huangang/taskboard/internal/domain"
)

// RedisRepository implements Repository on go-redis.
type RedisRepository struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisClient builds a client for the document store.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	return &RedisRepository{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisRepository) key(parts ...string) string {
	k := r.prefix
	for _, p := range parts {
		if k != "" {
			k += ":"
		}
		k += p
	}
	return k
}

func (r *RedisRepository) projectsKey() string         { return r.key("projects") }
func (r *RedisRepository) projectKey(id string) string { return r.key("project", id) }
func (r *RedisRepository) tasksKey(projectID string) string {
	return r.key("project", projectID, "tasks")
}
func (r *RedisRepository) taskKey(projectID, taskID string) string {
	return r.key("project", projectID, "task", taskID)
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return domain.Unavailable("ping document store", err)
	}
	return nil
}

// ListProjects returns every project in creation order. Index entries whose
// hash has disappeared are skipped.
func (r *RedisRepository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	ids, err := r.client.ZRange(ctx, r.projectsKey(), 0, -1).Result()
	if err != nil {
		return nil, domain.Unavailable("list projects", err)
	}
	hashes, err := r.fetchAll(ctx, ids, r.projectKey)
	if err != nil {
		return nil, domain.Unavailable("list projects", err)
	}

	projects := make([]domain.Project, 0, len(ids))
	for i, fields := range hashes {
		if len(fields) == 0 {
			continue
		}
		projects = append(projects, decodeProject(ids[i], fields))
	}
	return projects, nil
}

func (r *RedisRepository) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	fields, err := r.client.HGetAll(ctx, r.projectKey(id)).Result()
	if err != nil {
		return nil, domain.Unavailable("get project", err)
	}
	if len(fields) == 0 {
		return nil, domain.NotFound("project not found")
	}
	p := decodeProject(id, fields)
	return &p, nil
}

// CreateProject stores p, assigning an id and timestamps when missing.
func (r *RedisRepository) CreateProject(ctx context.Context, p *domain.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := r.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.projectKey(p.ID), encodeProject(p))
		pipe.ZAdd(ctx, r.projectsKey(), redis.Z{Score: score(p.CreatedAt), Member: p.ID})
		return nil
	})
	if err != nil {
		return domain.Unavailable("create project", err)
	}
	return nil
}

func (r *RedisRepository) UpdateProject(ctx context.Context, id string, patch domain.ProjectPatch) (*domain.Project, error) {
	fields := map[string]interface{}{}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Status != nil {
		fields["status"] = string(*patch.Status)
	}
	if patch.AssignedManager != nil {
		fields["assigned_manager"] = formatID(*patch.AssignedManager)
	}
	if err := r.merge(ctx, "update project", r.projectKey(id), fields); err != nil {
		return nil, err
	}
	return r.GetProject(ctx, id)
}

// DeleteProject removes the project hash, its task index and its entry in
// the project index. Task hashes must already be gone.
func (r *RedisRepository) DeleteProject(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.projectKey(id))
		pipe.Del(ctx, r.tasksKey(id))
		pipe.ZRem(ctx, r.projectsKey(), id)
		return nil
	})
	if err != nil {
		return domain.Unavailable("delete project", err)
	}
	if del.Val() == 0 {
		return domain.NotFound("project not found")
	}
	return nil
}

func (r *RedisRepository) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	ids, err := r.client.ZRange(ctx, r.tasksKey(projectID), 0, -1).Result()
	if err != nil {
		return nil, domain.Unavailable("list tasks", err)
	}
	hashes, err := r.fetchAll(ctx, ids, func(id string) string { return r.taskKey(projectID, id) })
	if err != nil {
		return nil, domain.Unavailable("list tasks", err)
	}

	tasks := make([]domain.Task, 0, len(ids))
	for i, fields := range hashes {
		if len(fields) == 0 {
			continue
		}
		tasks = append(tasks, decodeTask(projectID, ids[i], fields))
	}
	return tasks, nil
}

func (r *RedisRepository) GetTask(ctx context.Context, projectID, taskID string) (*domain.Task, error) {
	fields, err := r.client.HGetAll(ctx, r.taskKey(projectID, taskID)).Result()
	if err != nil {
		return nil, domain.Unavailable("get task", err)
	}
	if len(fields) == 0 {
		return nil, domain.NotFound("task not found")
	}
	t := decodeTask(projectID, taskID, fields)
	return &t, nil
}

// CreateTask stores t under t.ProjectID. Status defaults to pending.
func (r *RedisRepository) CreateTask(ctx context.Context, t *domain.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = domain.TaskPending
	}
	now := r.now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.taskKey(t.ProjectID, t.ID), encodeTask(t))
		pipe.ZAdd(ctx, r.tasksKey(t.ProjectID), redis.Z{Score: score(t.CreatedAt), Member: t.ID})
		return nil
	})
	if err != nil {
		return domain.Unavailable("create task", err)
	}
	return nil
}

func (r *RedisRepository) UpdateTask(ctx context.Context, projectID, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	fields := map[string]interface{}{}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Status != nil {
		fields["status"] = string(*patch.Status)
	}
	if patch.Priority != nil {
		fields["priority"] = string(*patch.Priority)
	}
	if patch.AssignedTo != nil {
		fields["assigned_to"] = formatID(*patch.AssignedTo)
	}
	if patch.DueDate != nil {
		fields["due_date"] = formatTime(*patch.DueDate)
	}
	if err := r.merge(ctx, "update task", r.taskKey(projectID, taskID), fields); err != nil {
		return nil, err
	}
	return r.GetTask(ctx, projectID, taskID)
}

func (r *RedisRepository) DeleteTask(ctx context.Context, projectID, taskID string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.taskKey(projectID, taskID))
		pipe.ZRem(ctx, r.tasksKey(projectID), taskID)
		return nil
	})
	if err != nil {
		return domain.Unavailable("delete task", err)
	}
	if del.Val() == 0 {
		return domain.NotFound("task not found")
	}
	return nil
}

// mergeScript sets the given fields only when the hash exists, so a
// concurrent delete cannot leave a partial document behind.
var mergeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

// merge writes fields plus updated_at into an existing hash.
func (r *RedisRepository) merge(ctx context.Context, op, key string, fields map[string]interface{}) error {
	fields["updated_at"] = formatTime(r.now().UTC())
	args := make([]interface{}, 0, 2*len(fields))
	for k, v := range fields {
		args = append(args, k, v)
	}

	n, err := mergeScript.Run(ctx, r.client, []string{key}, args...).Int()
	if err != nil {
		return domain.Unavailable(op, err)
	}
	if n == 0 {
		if op == "update task" {
			return domain.NotFound("task not found")
		}
		return domain.NotFound("project not found")
	}
	return nil
}

func (r *RedisRepository) fetchAll(ctx context.Context, ids []string, keyOf func(string) string) ([]map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, keyOf(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	out := make([]map[string]string, len(cmds))
	for i, cmd := range cmds {
		out[i] = cmd.Val()
	}
	return out, nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseID(s string) uint {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t
	}
	return time.Time{}
}

func encodeProject(p *domain.Project) map[string]interface{} {
	return map[string]interface{}{
		"name":             p.Name,
		"description":      p.Description,
		"status":           string(p.Status),
		"created_by":       formatID(p.CreatedBy),
		"assigned_manager": formatID(p.AssignedManager),
		"created_at":       formatTime(p.CreatedAt),
		"updated_at":       formatTime(p.UpdatedAt),
	}
}

func decodeProject(id string, f map[string]string) domain.Project {
	return domain.Project{
		ID:              id,
		Name:            f["name"],
		Description:     f["description"],
		Status:          domain.ProjectStatus(f["status"]),
		CreatedBy:       parseID(f["created_by"]),
		AssignedManager: parseID(f["assigned_manager"]),
		CreatedAt:       parseTime(f["created_at"]),
		UpdatedAt:       parseTime(f["updated_at"]),
	}
}

func encodeTask(t *domain.Task) map[string]interface{} {
	fields := map[string]interface{}{
		"project_id":  t.ProjectID,
		"title":       t.Title,
		"description": t.Description,
		"status":      string(t.Status),
		"priority":    string(t.Priority),
		"assigned_to": formatID(t.AssignedTo),
		"created_by":  formatID(t.CreatedBy),
		"created_at":  formatTime(t.CreatedAt),
		"updated_at":  formatTime(t.UpdatedAt),
	}
	if t.DueDate != nil {
		fields["due_date"] = formatTime(*t.DueDate)
	}
	return fields
}

func decodeTask(projectID, id string, f map[string]string) domain.Task {
	t := domain.Task{
		ID:          id,
		ProjectID:   projectID,
		Title:       f["title"],
		Description: f["description"],
		Status:      domain.TaskStatus(f["status"]),
		Priority:    domain.Priority(f["priority"]),
		AssignedTo:  parseID(f["assigned_to"]),
		CreatedBy:   parseID(f["created_by"]),
		CreatedAt:   parseTime(f["created_at"]),
		UpdatedAt:   parseTime(f["updated_at"]),
	}
	if due := parseTime(f["due_date"]); !due.IsZero() {
		t.DueDate = &due
	}
	return t
}

func (r *RedisRepository) revokedKey(tokenID string) string { return r.key("revoked", tokenID) }

// RevokeToken denies tokenID until it would have expired anyway.
func (r *RedisRepository) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.revokedKey(tokenID), "1", ttl).Err(); err != nil {
		return domain.Unavailable("revoke token", err)
	}
	return nil
}

func (r *RedisRepository) TokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.revokedKey(tokenID)).Result()
	if err != nil {
		return false, domain.Unavailable("check token", err)
	}
	return n > 0, nil
}
