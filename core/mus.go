package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-maintained mus-format serializers for the types persisted in BadgerDB.
// Field order is part of the storage format; append new fields at the end.
var (
	IDMUS          = idMUS{}
	SourceMUS      = sourceMUS{}
	ChunkMUS       = chunkMUS{}
	JudgedEntryMUS = judgedEntryMUS{}
	IndexStateMUS  = indexStateMUS{}

	recordMUS = messageRecordMUS{}
)

// Timestamps are stored as microseconds since the Unix epoch.
func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

type sourceMUS struct{}

func (sourceMUS) Marshal(s Source, bs []byte) (n int) {
	n = IDMUS.Marshal(s.ID, bs)
	n += ord.String.Marshal(s.Path, bs[n:])
	n += varint.Int64.Marshal(s.Offset, bs[n:])
	n += varint.Int64.Marshal(s.Records, bs[n:])
	n += marshalTime(s.LastCheckedAt, bs[n:])
	n += marshalTime(s.LastExtractedAt, bs[n:])
	return n
}

func (sourceMUS) Unmarshal(bs []byte) (s Source, n int, err error) {
	var m int
	if s.ID, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if s.Path, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return s, n + m, err
	}
	n += m
	if s.Offset, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return s, n + m, err
	}
	n += m
	if s.Records, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return s, n + m, err
	}
	n += m
	if s.LastCheckedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return s, n + m, err
	}
	n += m
	if s.LastExtractedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return s, n + m, err
	}
	n += m
	return s, n, nil
}

func (sourceMUS) Size(s Source) (size int) {
	size = IDMUS.Size(s.ID)
	size += ord.String.Size(s.Path)
	size += varint.Int64.Size(s.Offset)
	size += varint.Int64.Size(s.Records)
	size += sizeTime(s.LastCheckedAt)
	size += sizeTime(s.LastExtractedAt)
	return size
}

type messageRecordMUS struct{}

func (messageRecordMUS) Marshal(r MessageRecord, bs []byte) (n int) {
	n = varint.Int.Marshal(int(r.Role), bs)
	n += ord.String.Marshal(r.Text, bs[n:])
	n += marshalTime(r.Timestamp, bs[n:])
	n += IDMUS.Marshal(r.SourceID, bs[n:])
	return n
}

func (messageRecordMUS) Unmarshal(bs []byte) (r MessageRecord, n int, err error) {
	var (
		m    int
		role int
	)
	if role, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	r.Role = Role(role)
	if r.Text, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	if r.Timestamp, m, err = unmarshalTime(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	if r.SourceID, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	return r, n, nil
}

func (messageRecordMUS) Size(r MessageRecord) (size int) {
	size = varint.Int.Size(int(r.Role))
	size += ord.String.Size(r.Text)
	size += sizeTime(r.Timestamp)
	size += IDMUS.Size(r.SourceID)
	return size
}

type chunkMUS struct{}

func (chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = ord.String.Marshal(c.ID, bs)
	n += IDMUS.Marshal(c.SourceID, bs[n:])
	n += varint.Int.Marshal(len(c.Records), bs[n:])
	for i := range c.Records {
		n += recordMUS.Marshal(c.Records[i], bs[n:])
	}
	n += marshalTime(c.CreatedAt, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var (
		m     int
		count int
	)
	if c.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if c.SourceID, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if count, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if count > 0 {
		c.Records = make([]MessageRecord, count)
		for i := 0; i < count; i++ {
			if c.Records[i], m, err = recordMUS.Unmarshal(bs[n:]); err != nil {
				return c, n + m, err
			}
			n += m
		}
	}
	if c.CreatedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	return c, n, nil
}

func (chunkMUS) Size(c Chunk) (size int) {
	size = ord.String.Size(c.ID)
	size += IDMUS.Size(c.SourceID)
	size += varint.Int.Size(len(c.Records))
	for i := range c.Records {
		size += recordMUS.Size(c.Records[i])
	}
	size += sizeTime(c.CreatedAt)
	return size
}

type judgedEntryMUS struct{}

func (judgedEntryMUS) Marshal(e JudgedEntry, bs []byte) (n int) {
	n = marshalTime(e.Timestamp, bs)
	n += ord.String.Marshal(string(e.Category), bs[n:])
	n += varint.Int.Marshal(e.Importance, bs[n:])
	n += ord.String.Marshal(e.Text, bs[n:])
	n += ord.String.Marshal(e.ContentHash, bs[n:])
	n += ord.String.Marshal(e.Source, bs[n:])
	return n
}

func (judgedEntryMUS) Unmarshal(bs []byte) (e JudgedEntry, n int, err error) {
	var (
		m   int
		cat string
	)
	if e.Timestamp, n, err = unmarshalTime(bs); err != nil {
		return
	}
	if cat, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + m, err
	}
	e.Category = Category(cat)
	n += m
	if e.Importance, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	if e.Text, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	if e.ContentHash, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	if e.Source, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	return e, n, nil
}

func (judgedEntryMUS) Size(e JudgedEntry) (size int) {
	size = sizeTime(e.Timestamp)
	size += ord.String.Size(string(e.Category))
	size += varint.Int.Size(e.Importance)
	size += ord.String.Size(e.Text)
	size += ord.String.Size(e.ContentHash)
	size += ord.String.Size(e.Source)
	return size
}

type indexStateMUS struct{}

func (indexStateMUS) Marshal(s IndexState, bs []byte) (n int) {
	n = varint.Uint64.Marshal(s.LastIndexedSeq, bs)
	n += marshalTime(s.LastRunAt, bs[n:])
	return n
}

func (indexStateMUS) Unmarshal(bs []byte) (s IndexState, n int, err error) {
	var m int
	if s.LastIndexedSeq, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return
	}
	if s.LastRunAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return s, n + m, err
	}
	n += m
	return s, n, nil
}

func (indexStateMUS) Size(s IndexState) (size int) {
	size = varint.Uint64.Size(s.LastIndexedSeq)
	size += sizeTime(s.LastRunAt)
	return size
}
