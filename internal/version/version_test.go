package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/simonhull/imagemeta/internal/xmp"
)

func date(s string) xmp.Date {
	d, err := xmp.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// sampleDocument exercises every value kind.
func sampleDocument() Document {
	return Document{
		xmp.NSDC: {
			"title":   xmp.LangAlt{"x-default": "Harbour", "de": "Hafen"},
			"subject": xmp.Array{Form: xmp.Bag, Items: []xmp.Value{xmp.Text("boats"), xmp.Text("sea")}},
			"creator": xmp.Array{Form: xmp.Seq, Items: []xmp.Value{xmp.Text("Ana"), xmp.Text("Ben")}},
		},
		xmp.NSXMP: {
			"Rating":     xmp.Integer(4),
			"CreateDate": date("2024-03"),
		},
		xmp.NSIptcCore: {
			"CreatorContactInfo": xmp.Struct{
				{Space: xmp.NSIptcCore, Local: "CiEmailWork"}: xmp.Text("ana@example.com"),
			},
		},
		"exif:IFD0": {
			"Orientation": xmp.Integer(6),
			"XResolution": xmp.Real(72.5),
			"Odd":         xmp.Real(math.Inf(1)),
		},
	}
}

func TestCanonicalRoundTrip(t *testing.T) {
	doc := sampleDocument()
	data, err := Canonical(doc)
	if err != nil {
		t.Fatal(err)
	}
	var back Document
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !Equal(doc, back) {
		t.Errorf("round trip changed the document:\n%s", data)
	}
}

func TestHashIgnoresBagOrderAndEmptyNamespaces(t *testing.T) {
	a := sampleDocument()
	b := sampleDocument()
	b[xmp.NSDC]["subject"] = xmp.Array{Form: xmp.Bag, Items: []xmp.Value{xmp.Text("sea"), xmp.Text("boats")}}
	b["empty"] = Properties{}

	ha, _ := Hash(a)
	hb, _ := Hash(b)
	if ha != hb {
		t.Error("semantically equal documents hash differently")
	}

	b[xmp.NSDC]["creator"] = xmp.Array{Form: xmp.Seq, Items: []xmp.Value{xmp.Text("Ben"), xmp.Text("Ana")}}
	if hc, _ := Hash(b); hc == ha {
		t.Error("reordered Seq hashes the same")
	}
}

func TestDiffApply(t *testing.T) {
	from := sampleDocument()
	to := from.
		With(xmp.NSXMP, "Rating", xmp.Integer(5)).
		With(xmp.NSXMP, "Label", xmp.Text("Red")).
		With("exif:IFD0", "Odd", nil).
		With("iptc", "Caption", xmp.Text("new namespace"))

	d := Diff(from, to)
	if got := d[xmp.NSXMP].Modified["Rating"]; !xmp.ValueEqual(got.Old, xmp.Integer(4)) || !xmp.ValueEqual(got.New, xmp.Integer(5)) {
		t.Errorf("Rating change = %+v", got)
	}
	if _, ok := d[xmp.NSXMP].Added["Label"]; !ok {
		t.Error("Label not added")
	}
	if removed := d["exif:IFD0"].Removed; len(removed) != 1 || removed[0] != "Odd" {
		t.Errorf("Removed = %v", removed)
	}
	if _, ok := d[xmp.NSDC]; ok {
		t.Error("unchanged namespace present in delta")
	}

	if got := Apply(from, d); !Equal(got, to) {
		t.Error("Apply(from, Diff(from, to)) != to")
	}
	if !Diff(to, to).Empty() {
		t.Error("Diff of identical documents is not empty")
	}
}

func TestCreateVersionDeltaAndFull(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	v1, err := s.CreateVersion(ctx, sampleDocument(), "", CommitInfo{Author: "ana"})
	if err != nil {
		t.Fatal(err)
	}
	if v1.IsDelta() {
		t.Error("root version stored as delta")
	}

	small := sampleDocument().With(xmp.NSXMP, "Rating", xmp.Integer(5))
	v2, err := s.CreateVersion(ctx, small, v1.ID, CommitInfo{})
	if err != nil {
		t.Fatal(err)
	}
	if !v2.IsDelta() || v2.Depth != 1 {
		t.Errorf("small change stored as %s (depth %d), want delta", v2.Stored, v2.Depth)
	}

	rewritten := Document{"iptc": {"Caption": xmp.Text("entirely different")}}
	v3, err := s.CreateVersion(ctx, rewritten, v2.ID, CommitInfo{})
	if err != nil {
		t.Fatal(err)
	}
	if v3.IsDelta() {
		t.Error("wholesale rewrite stored as delta")
	}

	for _, tc := range []struct {
		id   string
		want Document
	}{
		{v1.ID, sampleDocument()},
		{v2.ID, small},
		{v3.ID, rewritten},
	} {
		got, err := s.GetVersion(ctx, tc.id)
		if err != nil {
			t.Fatal(err)
		}
		if !Equal(got, tc.want) {
			t.Errorf("GetVersion(%s) differs from the committed document", tc.id)
		}
	}

	if _, err := s.CreateVersion(ctx, small, "no-such-parent", CommitInfo{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown parent err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetVersion(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetVersion(missing) err = %v", err)
	}
}

func TestMaxChainForcesFull(t *testing.T) {
	ctx := context.Background()
	s := NewStore(WithMaxChain(2))

	v, err := s.CreateVersion(ctx, sampleDocument(), "", CommitInfo{})
	if err != nil {
		t.Fatal(err)
	}
	var stored []string
	for i := range 4 {
		doc := sampleDocument().With(xmp.NSXMP, "Rating", xmp.Integer(int64(i)))
		if v, err = s.CreateVersion(ctx, doc, v.ID, CommitInfo{}); err != nil {
			t.Fatal(err)
		}
		stored = append(stored, v.Stored)
	}
	want := []string{StoredDelta, StoredDelta, StoredFull, StoredDelta}
	if fmt.Sprint(stored) != fmt.Sprint(want) {
		t.Errorf("representations = %v, want %v", stored, want)
	}

	hist, err := s.History(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 5 || hist[len(hist)-1].ParentID != "" {
		t.Errorf("History length = %d", len(hist))
	}
}

func TestDeltaThresholdZeroDisablesDeltas(t *testing.T) {
	ctx := context.Background()
	s := NewStore(WithDeltaThreshold(0))
	v1, _ := s.CreateVersion(ctx, sampleDocument(), "", CommitInfo{})
	v2, err := s.CreateVersion(ctx, sampleDocument().With(xmp.NSXMP, "Rating", xmp.Integer(1)), v1.ID, CommitInfo{})
	if err != nil {
		t.Fatal(err)
	}
	if v2.IsDelta() {
		t.Error("delta stored with threshold 0")
	}
}

func TestCompare(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	v1, _ := s.CreateVersion(ctx, sampleDocument(), "", CommitInfo{})
	next := sampleDocument().
		With(xmp.NSXMP, "Rating", xmp.Integer(1)).
		With("iptc", "City", xmp.Text("Oslo"))
	delete(next, "exif:IFD0")
	v2, _ := s.CreateVersion(ctx, next, v1.ID, CommitInfo{})

	c, err := s.Compare(ctx, v1.ID, v2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(c.AddedNamespaces) != "[iptc]" ||
		fmt.Sprint(c.RemovedNamespaces) != "[exif:IFD0]" ||
		fmt.Sprint(c.ModifiedNamespaces) != "["+xmp.NSXMP+"]" {
		t.Errorf("comparison = %+v", c)
	}

	same, _ := s.Compare(ctx, v1.ID, v1.ID)
	if !same.Identical() {
		t.Error("version differs from itself")
	}
}

// branches commits base and two children that apply editA and editB.
func branches(t *testing.T, s *Store, editA, editB func(Document) Document) (base, a, b string) {
	t.Helper()
	ctx := context.Background()
	vb, err := s.CreateVersion(ctx, sampleDocument(), "", CommitInfo{})
	if err != nil {
		t.Fatal(err)
	}
	va, err := s.CreateVersion(ctx, editA(sampleDocument()), vb.ID, CommitInfo{Author: "a"})
	if err != nil {
		t.Fatal(err)
	}
	vc, err := s.CreateVersion(ctx, editB(sampleDocument()), vb.ID, CommitInfo{Author: "b"})
	if err != nil {
		t.Fatal(err)
	}
	return vb.ID, va.ID, vc.ID
}

func setRating(n int64) func(Document) Document {
	return func(d Document) Document { return d.With(xmp.NSXMP, "Rating", xmp.Integer(n)) }
}

func TestMergeDisjoint(t *testing.T) {
	s := NewStore()
	base, a, b := branches(t, s,
		setRating(5),
		func(d Document) Document { return d.With("exif:IFD0", "Orientation", xmp.Integer(1)) },
	)

	res, err := s.Merge(context.Background(), base, a, b, FailOnConflict)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Resolutions) != 0 {
		t.Errorf("Resolutions = %v, want none", res.Resolutions)
	}
	want := sampleDocument().
		With(xmp.NSXMP, "Rating", xmp.Integer(5)).
		With("exif:IFD0", "Orientation", xmp.Integer(1))
	if !Equal(res.Document, want) {
		t.Error("merged document lacks one side's change")
	}
}

func TestMergeSameChangeOnBothSides(t *testing.T) {
	s := NewStore()
	base, a, b := branches(t, s, setRating(2), setRating(2))
	res, err := s.Merge(context.Background(), base, a, b, FailOnConflict)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := res.Document.Get(xmp.NSXMP, "Rating"); !xmp.ValueEqual(v, xmp.Integer(2)) {
		t.Errorf("Rating = %v", v)
	}
}

func TestMergeConflict(t *testing.T) {
	s := NewStore()
	base, a, b := branches(t, s, setRating(1), setRating(5))

	_, err := s.Merge(context.Background(), base, a, b, FailOnConflict)
	var mce *MergeConflictError
	if !errors.As(err, &mce) {
		t.Fatalf("err = %v, want *MergeConflictError", err)
	}
	if len(mce.Conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(mce.Conflicts))
	}
	c := mce.Conflicts[0]
	if c.Namespace != xmp.NSXMP || c.Property != "Rating" ||
		!xmp.ValueEqual(c.A, xmp.Integer(1)) || !xmp.ValueEqual(c.B, xmp.Integer(5)) ||
		!xmp.ValueEqual(c.Base, xmp.Integer(4)) {
		t.Errorf("conflict = %+v", c)
	}

	tests := []struct {
		policy ConflictPolicy
		want   int64
	}{
		{PreferA, 1},
		{PreferB, 5},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			res, err := s.Merge(context.Background(), base, a, b, tt.policy)
			if err != nil {
				t.Fatal(err)
			}
			if v, _ := res.Document.Get(xmp.NSXMP, "Rating"); !xmp.ValueEqual(v, xmp.Integer(tt.want)) {
				t.Errorf("Rating = %v, want %d", v, tt.want)
			}
			if len(res.Resolutions) != 1 {
				t.Errorf("Resolutions = %d, want 1", len(res.Resolutions))
			}
		})
	}
}

func TestMergeDeleteVersusModify(t *testing.T) {
	s := NewStore()
	base, a, b := branches(t, s,
		func(d Document) Document { return d.With(xmp.NSXMP, "Rating", nil) },
		setRating(3),
	)
	_, err := s.Merge(context.Background(), base, a, b, FailOnConflict)
	var mce *MergeConflictError
	if !errors.As(err, &mce) || len(mce.Conflicts) != 1 || mce.Conflicts[0].A != nil {
		t.Fatalf("err = %v, want one conflict with A removed", err)
	}
}

func TestResolverRunsWithoutLocks(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base, a, b := branches(t, s, setRating(1), setRating(5))

	// The resolver re-enters the store; a lock held across the callback
	// would deadlock here.
	resolver := func(ctx context.Context, c Conflict) (xmp.Value, error) {
		if _, err := s.GetVersion(ctx, base); err != nil {
			return nil, err
		}
		if _, err := s.CreateVersion(ctx, Document{}, "", CommitInfo{Message: "side effect"}); err != nil {
			return nil, err
		}
		return xmp.Integer(3), nil
	}

	done := make(chan error, 1)
	var res *MergeResult
	go func() {
		var err error
		res, err = s.Merge(ctx, base, a, b, ResolveWith(resolver))
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("merge blocked while the resolver used the store")
	}
	if v, _ := res.Document.Get(xmp.NSXMP, "Rating"); !xmp.ValueEqual(v, xmp.Integer(3)) {
		t.Errorf("Rating = %v, want resolver's 3", v)
	}

	v, err := s.CommitMerge(ctx, res, CommitInfo{Message: "merge"})
	if err != nil {
		t.Fatal(err)
	}
	if v.ParentID != a || len(v.MergedFrom) != 3 || v.MergedFrom[2] != b {
		t.Errorf("merge version = %+v", v)
	}
}

func TestResolverError(t *testing.T) {
	s := NewStore()
	base, a, b := branches(t, s, setRating(1), setRating(5))
	boom := errors.New("user cancelled")
	_, err := s.Merge(context.Background(), base, a, b, ResolveWith(func(context.Context, Conflict) (xmp.Value, error) {
		return nil, boom
	}))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want resolver error", err)
	}
}

func TestCommitMergeParent(t *testing.T) {
	s := NewStore(WithMergeParent(ParentBase))
	base, a, b := branches(t, s, setRating(1), setRating(1))
	res, err := s.Merge(context.Background(), base, a, b, FailOnConflict)
	if err != nil {
		t.Fatal(err)
	}
	v, err := s.CommitMerge(context.Background(), res, CommitInfo{})
	if err != nil {
		t.Fatal(err)
	}
	if v.ParentID != base {
		t.Errorf("ParentID = %s, want base %s", v.ParentID, base)
	}
}

func TestHistoryTimestamps(t *testing.T) {
	ctx := context.Background()
	tick := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(WithClock(func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}))

	v1, err := s.CreateVersion(ctx, sampleDocument(), "", CommitInfo{Message: "import"})
	if err != nil {
		t.Fatal(err)
	}
	v2, err := s.CreateVersion(ctx, setRating(2)(sampleDocument()), v1.ID, CommitInfo{Message: "rate"})
	if err != nil {
		t.Fatal(err)
	}

	history, err := s.History(ctx, v2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0].ID != v2.ID || history[1].ID != v1.ID {
		t.Fatalf("History() = %v, want newest first", history)
	}
	if got := history[0].Timestamp.Sub(history[1].Timestamp); got != time.Minute {
		t.Errorf("timestamps %v apart, want 1m", got)
	}
}

// tamperBackend corrupts the content hash of every record it returns.
type tamperBackend struct {
	*MemoryBackend
}

func (t tamperBackend) Get(ctx context.Context, id string) (*Version, error) {
	v, err := t.MemoryBackend.Get(ctx, id)
	if err == nil {
		v.ContentHash = "00"
	}
	return v, err
}

func TestGetVersionDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	s := NewStore(WithBackend(tamperBackend{NewMemoryBackend()}))
	v, err := s.CreateVersion(ctx, sampleDocument(), "", CommitInfo{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetVersion(ctx, v.ID); !errors.Is(err, ErrCorrupt) {
		t.Errorf("err = %v, want ErrCorrupt", err)
	}
}

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fb, err := NewFileBackend(dir)
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(WithBackend(fb))
	v1, err := s.CreateVersion(ctx, sampleDocument(), "", CommitInfo{Author: "ana"})
	if err != nil {
		t.Fatal(err)
	}
	v2, err := s.CreateVersion(ctx, sampleDocument().With(xmp.NSXMP, "Rating", xmp.Integer(0)), v1.ID, CommitInfo{})
	if err != nil {
		t.Fatal(err)
	}
	if err := fb.Put(ctx, v1); !errors.Is(err, ErrExists) {
		t.Errorf("second Put err = %v, want ErrExists", err)
	}
	fb.Close()

	// A fresh backend over the same directory sees both records.
	reopened, err := NewFileBackend(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	ids, err := reopened.List(ctx)
	if err != nil || len(ids) != 2 {
		t.Fatalf("List = %v, %v", ids, err)
	}

	s2 := NewStore(WithBackend(reopened))
	got, err := s2.GetVersion(ctx, v2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(got, sampleDocument().With(xmp.NSXMP, "Rating", xmp.Integer(0))) {
		t.Error("reopened store returned a different document")
	}
	rec, err := s2.GetRecord(ctx, v1.ID)
	if err != nil || rec.Author != "ana" {
		t.Errorf("GetRecord = %+v, %v", rec, err)
	}
	if _, err := reopened.Get(ctx, "../../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Errorf("path traversal id err = %v", err)
	}
}
