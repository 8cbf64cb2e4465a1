package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchool(t *testing.T, dir, id, doc string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".json"), []byte(doc), 0o644))
}

const validDoc = `{
	"name": "Kimini英会話",
	"officialUrl": "https://kimini.online/",
	"summary": "学研グループのオンライン英会話。",
	"rating": 4.5,
	"teacherQuality": 4.0,
	"introPlacement": "section",
	"introSections": [{"title": "カリキュラム", "body": "段階的に学べる。"}],
	"primarySources": [{"label": "公式", "url": "https://kimini.online/", "type": "official"}]
}`

func TestNewStoreLoadsAndIndexes(t *testing.T) {
	dir := t.TempDir()
	writeSchool(t, dir, "kimini", validDoc)
	writeSchool(t, dir, "dmm", `{
		"name": "DMM英会話",
		"officialUrl": "https://eikaiwa.dmm.com/",
		"summary": "毎日話せるオンライン英会話。"
	}`)
	// Non-JSON files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o644))

	store, err := NewStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, []string{"dmm", "kimini"}, store.IDs())
	assert.True(t, store.Has("kimini"))
	assert.False(t, store.Has("unknown"))

	rec, ok := store.Get("kimini")
	require.True(t, ok)
	assert.Equal(t, "kimini", rec.ID)
	assert.Equal(t, "Kimini英会話", rec.Name)
	require.NotNil(t, rec.Rating)
	assert.Equal(t, 4.5, *rec.Rating)

	all := store.All()
	require.Len(t, all, 2)
	assert.Equal(t, "dmm", all[0].ID)
}

func TestNewStoreRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", `{"officialUrl": "https://x.example/", "summary": "s"}`},
		{"missing summary", `{"name": "n", "officialUrl": "https://x.example/"}`},
		{"missing officialUrl", `{"name": "n", "summary": "s"}`},
		{"relative officialUrl", `{"name": "n", "officialUrl": "/path", "summary": "s"}`},
		{"score out of range", `{"name": "n", "officialUrl": "https://x.example/", "summary": "s", "rating": 5.5}`},
		{"score off the half step", `{"name": "n", "officialUrl": "https://x.example/", "summary": "s", "teacherQuality": 4.2}`},
		{"bad introPlacement", `{"name": "n", "officialUrl": "https://x.example/", "summary": "s", "introPlacement": "sidebar"}`},
		{"intro section without body", `{"name": "n", "officialUrl": "https://x.example/", "summary": "s", "introSections": [{"title": "t", "body": ""}]}`},
		{"bad primary source type", `{"name": "n", "officialUrl": "https://x.example/", "summary": "s", "primarySources": [{"label": "l", "url": "https://x.example/", "type": "blog"}]}`},
		{"broken JSON", `{"name": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSchool(t, dir, "bad", tt.doc)
			_, err := NewStore(dir)
			assert.Error(t, err)
		})
	}
}

func TestReloadSwapsRecordSet(t *testing.T) {
	dir := t.TempDir()
	writeSchool(t, dir, "kimini", validDoc)

	store, err := NewStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	writeSchool(t, dir, "dmm", `{
		"name": "DMM英会話",
		"officialUrl": "https://eikaiwa.dmm.com/",
		"summary": "毎日話せるオンライン英会話。"
	}`)
	require.NoError(t, store.Reload())
	assert.Equal(t, 2, store.Len())
}

func TestLinkURLs(t *testing.T) {
	plan := "https://kimini.online/plan"
	banner := "https://kimini.online/lp"
	rec := &SchoolRecord{OfficialURL: "https://kimini.online/", PlanURL: &plan, BannerHref: &banner}
	assert.Equal(t, []string{"https://kimini.online/", plan, banner}, rec.LinkURLs())

	rec2 := &SchoolRecord{OfficialURL: "https://kimini.online/"}
	assert.Equal(t, []string{"https://kimini.online/"}, rec2.LinkURLs())
}
