package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheMetricsRecorder receives hit/miss observations for cache lookups.
type CacheMetricsRecorder interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

// MembershipCacheKey is the shared cache entry holding course and group
// member lists, refreshed out of process by the VLE sync job.
const MembershipCacheKey = "course_group_memberships"

// CourseMembership is the cached membership shape for one VLE course.
type CourseMembership struct {
	Members []string            `json:"members"`
	Groups  map[string][]string `json:"groups"`
}

// MembershipCacheRepository reads the external course/group membership cache.
// Every lookup fails closed: a missing key, malformed entry, unreachable
// Redis or nil client all report "not a member" rather than an error, so
// private announcements are never over-disclosed.
type MembershipCacheRepository struct {
	client  *redis.Client
	logger  *zap.Logger
	metrics CacheMetricsRecorder
}

// NewMembershipCacheRepository constructs the cache reader. metrics may be
// nil.
func NewMembershipCacheRepository(client *redis.Client, logger *zap.Logger, metrics CacheMetricsRecorder) *MembershipCacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipCacheRepository{client: client, logger: logger, metrics: metrics}
}

// IsCourseMember reports whether the username appears in the course's
// members list.
func (r *MembershipCacheRepository) IsCourseMember(ctx context.Context, vleCourseID, username string) bool {
	for _, member := range r.CourseMembers(ctx, vleCourseID) {
		if member == username {
			return true
		}
	}
	return false
}

// IsGroupMember reports whether the username appears in the group's member
// list within the course.
func (r *MembershipCacheRepository) IsGroupMember(ctx context.Context, vleCourseID, vleGroupID, username string) bool {
	for _, member := range r.GroupMembers(ctx, vleCourseID, vleGroupID) {
		if member == username {
			return true
		}
	}
	return false
}

// CourseMembers returns the course's member usernames, or nil when the
// course is absent from the cache.
func (r *MembershipCacheRepository) CourseMembers(ctx context.Context, vleCourseID string) []string {
	memberships, ok := r.snapshot(ctx)
	if !ok {
		return nil
	}
	course, ok := memberships[vleCourseID]
	if !ok {
		return nil
	}
	return course.Members
}

// GroupMembers returns the group's member usernames, or nil when the course
// or group is absent.
func (r *MembershipCacheRepository) GroupMembers(ctx context.Context, vleCourseID, vleGroupID string) []string {
	memberships, ok := r.snapshot(ctx)
	if !ok {
		return nil
	}
	course, ok := memberships[vleCourseID]
	if !ok || course.Groups == nil {
		return nil
	}
	return course.Groups[vleGroupID]
}

func (r *MembershipCacheRepository) snapshot(ctx context.Context) (map[string]CourseMembership, bool) {
	if r.client == nil {
		return nil, false
	}

	start := time.Now()
	raw, err := r.client.Get(ctx, MembershipCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("membership cache read failed", zap.Error(err))
		}
		r.record(false, start)
		return nil, false
	}

	var memberships map[string]CourseMembership
	if err := json.Unmarshal(raw, &memberships); err != nil {
		r.logger.Warn("membership cache entry malformed", zap.Error(err))
		r.record(false, start)
		return nil, false
	}

	r.record(true, start)
	return memberships, true
}

func (r *MembershipCacheRepository) record(hit bool, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordCacheOperation(hit, time.Since(start))
	}
}
