package rewind

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type (
	// ArchiveRecord carries one archived Snapshot and its stream entry
	ArchiveRecord struct {
		StreamID string
		StackID  StackID
		Snapshot *Snapshot
	}

	archivePayload struct {
		StackID  string          `json:"id"`
		Snapshot json.RawMessage `json:"snapshot"`
	}

	// ArchiveHandler handles a single archive record
	ArchiveHandler func(context.Context, *ArchiveRecord) error
)

var (
	// ErrArchivingDisabled indicates archiving is not enabled for this
	// serializer
	ErrArchivingDisabled = errors.New("archiving not enabled")

	// ErrArchiveRecordMalformed indicates an archive record was
	// malformed
	ErrArchiveRecordMalformed = errors.New("archive record malformed")
)

const (
	// DefaultMinIdle is the idle duration before pending archive work is
	// reclaimed from a stalled consumer
	DefaultMinIdle = 30 * time.Second

	archiveGroup = "rewind-archive"
)

// Archive appends a Snapshot to the archive stream. Snapshots evicted
// by the history depth cap can be routed here from a ChangeEvicted
// subscription so they remain auditable after leaving the Stack
func (rs *RedisSerializer) Archive(
	ctx context.Context, id StackID, snap *Snapshot,
) error {
	if !rs.config.Archiving {
		return ErrArchivingDisabled
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(archivePayload{
		StackID:  JoinKey(id),
		Snapshot: data,
	})
	if err != nil {
		return err
	}

	return rs.client.XAdd(ctx, &redis.XAddArgs{
		Stream: rs.archiveStreamKey(),
		Values: map[string]any{"payload": string(payload)},
	}).Err()
}

// ConsumeArchive reads one archive record from the stream and invokes
// handler. If handler succeeds, the stream entry is acknowledged and
// deleted
func (rs *RedisSerializer) ConsumeArchive(
	ctx context.Context, handler ArchiveHandler,
) error {
	return rs.PollArchive(ctx, 0, handler)
}

// PollArchive reads one archive record using the provided block
// timeout. If handler succeeds, the stream entry is acknowledged and
// deleted
func (rs *RedisSerializer) PollArchive(
	ctx context.Context, timeout time.Duration, handler ArchiveHandler,
) error {
	if !rs.config.Archiving {
		return ErrArchivingDisabled
	}
	if handler == nil {
		return errors.New("archive handler is required")
	}

	streamKey := rs.archiveStreamKey()
	if err := rs.ensureArchiveGroup(ctx, streamKey); err != nil {
		return err
	}

	recovered, err := rs.recoverArchive(ctx, streamKey, handler)
	if err != nil || recovered {
		return err
	}

	args := &redis.XReadGroupArgs{
		Group:    archiveGroup,
		Consumer: rs.consumer,
		Streams:  []string{streamKey, ">"},
		Count:    1,
		Block:    timeout,
	}

	streams, err := rs.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil
	}

	return rs.handleArchive(ctx, streamKey, streams[0].Messages[0], handler)
}

func (rs *RedisSerializer) recoverArchive(
	ctx context.Context, stream string, handler ArchiveHandler,
) (bool, error) {
	args := &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    archiveGroup,
		Consumer: rs.consumer,
		MinIdle:  DefaultMinIdle,
		Start:    "0-0",
		Count:    1,
	}

	msgs, _, err := rs.client.XAutoClaim(ctx, args).Result()
	if err != nil || len(msgs) == 0 {
		return false, err
	}

	return true, rs.handleArchive(ctx, stream, msgs[0], handler)
}

func (rs *RedisSerializer) handleArchive(
	ctx context.Context, stream string, msg redis.XMessage,
	handler ArchiveHandler,
) error {
	record, err := rs.parseArchiveRecord(msg)
	if err != nil {
		return err
	}

	if err := handler(ctx, record); err != nil {
		return err
	}

	_, err = rs.consumeLua.Run(
		ctx, rs.client, []string{stream}, archiveGroup, msg.ID,
	).Result()
	return err
}

func (rs *RedisSerializer) parseArchiveRecord(
	msg redis.XMessage,
) (*ArchiveRecord, error) {
	payloadRaw, ok := msg.Values["payload"]
	if !ok {
		return nil, ErrArchiveRecordMalformed
	}

	payloadStr, ok := payloadRaw.(string)
	if !ok {
		rawBytes, okBytes := payloadRaw.([]byte)
		if !okBytes {
			return nil, ErrArchiveRecordMalformed
		}
		payloadStr = string(rawBytes)
	}

	var payload archivePayload
	if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
		return nil, err
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(payload.Snapshot, snap); err != nil {
		return nil, err
	}

	return &ArchiveRecord{
		StreamID: msg.ID,
		StackID:  ParseKey(payload.StackID),
		Snapshot: snap,
	}, nil
}

func (rs *RedisSerializer) ensureArchiveGroup(
	ctx context.Context, streamKey string,
) error {
	err := rs.client.XGroupCreateMkStream(
		ctx, streamKey, archiveGroup, "0-0",
	).Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (rs *RedisSerializer) archiveStreamKey() string {
	return rs.prefix + archiveSuffix
}
