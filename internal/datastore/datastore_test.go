package datastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glats-richard/eigoonline/internal/conf"
)

func newTestStore(t *testing.T) Interface {
	t.Helper()
	settings := &conf.Settings{}
	settings.Database.SQLite.Enabled = true
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	ds := New(settings)
	require.NotNil(t, ds)
	require.NoError(t, ds.Open())
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func TestNewReturnsNilWhenUnconfigured(t *testing.T) {
	assert.Nil(t, New(&conf.Settings{}))
}

func TestOverrideLifecycle(t *testing.T) {
	ds := newTestStore(t)

	row, err := ds.GetOverride("kimini")
	require.NoError(t, err)
	assert.Nil(t, row)

	require.NoError(t, ds.UpsertOverride("kimini", []byte(`{"priceText":"月額5,000円"}`)))
	require.NoError(t, ds.UpsertOverride("dmm", []byte(`{}`)))

	row, err = ds.GetOverride("kimini")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, `{"priceText":"月額5,000円"}`, row.Data)

	// Second upsert replaces, it must not duplicate.
	require.NoError(t, ds.UpsertOverride("kimini", []byte(`{"priceText":"月額6,000円"}`)))
	rows, err := ds.ListOverrides()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row, err = ds.GetOverride("kimini")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, `{"priceText":"月額6,000円"}`, row.Data)

	require.NoError(t, ds.DeleteOverride("kimini"))
	row, err = ds.GetOverride("kimini")
	require.NoError(t, err)
	assert.Nil(t, row)

	// Deleting an absent row is fine.
	require.NoError(t, ds.DeleteOverride("kimini"))
}

func TestReviewLifecycle(t *testing.T) {
	ds := newTestStore(t)

	hash := "abc123"
	r := &Review{
		SchoolID:          "kimini",
		Status:            StatusPending,
		OverallRating:     4,
		TeacherQuality:    5,
		MaterialQuality:   4,
		ConnectionQuality: 3,
		Body:              "講師が丁寧でわかりやすかったです。",
		IPHash:            &hash,
	}
	require.NoError(t, ds.SaveReview(r))
	require.NotZero(t, r.ID)

	// Pending reviews are invisible to the public listing.
	approved, err := ds.ApprovedReviews("kimini")
	require.NoError(t, err)
	assert.Empty(t, approved)

	comment := "確認済み"
	require.NoError(t, ds.UpdateReviewStatus(r.ID, StatusApproved, &comment))

	approved, err = ds.ApprovedReviews("kimini")
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, r.ID, approved[0].ID)
	require.NotNil(t, approved[0].ReviewComment)
	assert.Equal(t, comment, *approved[0].ReviewComment)

	count, err := ds.CountRecentReviews(hash, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = ds.CountRecentReviews("otherhash", time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	err = ds.UpdateReviewStatus(99999, StatusRejected, nil)
	assert.Error(t, err)
}

func TestConversionIdempotency(t *testing.T) {
	ds := newTestStore(t)

	event := "evt-123"
	first := &Conversion{OfferID: "kimini", EventID: &event, Status: StatusPending}
	require.NoError(t, ds.SaveConversion(first))
	require.NotZero(t, first.ID)

	replay := &Conversion{OfferID: "kimini", EventID: &event, Status: StatusPending}
	require.NoError(t, ds.SaveConversion(replay))
	assert.Zero(t, replay.ID, "replayed event must not insert")

	row, err := ds.GetConversionByEventID(event)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, first.ID, row.ID)

	// Conversions without an event id always insert.
	require.NoError(t, ds.SaveConversion(&Conversion{OfferID: "kimini", Status: StatusPending}))
	require.NoError(t, ds.SaveConversion(&Conversion{OfferID: "kimini", Status: StatusPending}))
}

func TestConversionStatusAndCounts(t *testing.T) {
	ds := newTestStore(t)

	hash := "deadbeef"
	cv := &Conversion{OfferID: "kimini", Status: StatusCheck, IPHash: &hash}
	require.NoError(t, ds.SaveConversion(cv))

	count, err := ds.CountRecentConversions(hash, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, ds.UpdateConversionStatus(cv.ID, StatusApproved))
	row, err := ds.GetConversionByEventID("missing")
	require.NoError(t, err)
	assert.Nil(t, row)

	assert.Error(t, ds.UpdateConversionStatus(99999, StatusApproved))
}

func TestPatchSourceSkipsBadRows(t *testing.T) {
	ds := newTestStore(t)

	require.NoError(t, ds.UpsertOverride("kimini", []byte(`{"priceText":"月額5,000円"}`)))
	require.NoError(t, ds.UpsertOverride("dmm", []byte(`{broken`)))

	src := PatchSource(ds)
	require.NotNil(t, src)

	patches, err := src.OverridePatches()
	require.NoError(t, err)
	require.Len(t, patches, 1)

	p, ok := patches["kimini"]
	require.True(t, ok)
	require.True(t, p.PriceText.Defined)
}

func TestPatchSourceNilStore(t *testing.T) {
	assert.Nil(t, PatchSource(nil))
}

func TestSaveClick(t *testing.T) {
	ds := newTestStore(t)

	cl := &Click{OfferID: "kimini", ClickID: "c1", URL: "https://kimini.online/?click_id=c1"}
	require.NoError(t, ds.SaveClick(cl))
	require.NotZero(t, cl.ID)
}
