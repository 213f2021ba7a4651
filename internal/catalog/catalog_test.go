package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bgmexport/internal/catalog"
)

func TestStatusLabelTableIsTotal(t *testing.T) {
	table := catalog.NewStatusLabelTable()
	for _, subject := range catalog.SubjectTypes() {
		for _, status := range catalog.CollectionStatuses() {
			assert.NotEmpty(t, table.Label(subject, status), "missing label for %s/%s", subject.Slug(), status)
		}
	}
	assert.Equal(t, len(catalog.SubjectTypes())*len(catalog.CollectionStatuses()), table.Len())
}

func TestStatusLabelTableVocabulary(t *testing.T) {
	table := catalog.NewStatusLabelTable()
	cases := []struct {
		subject catalog.SubjectType
		status  catalog.CollectionStatus
		want    string
	}{
		{catalog.SubjectAnime, catalog.StatusDone, "看过"},
		{catalog.SubjectReal, catalog.StatusDoing, "在看"},
		{catalog.SubjectGame, catalog.StatusDoing, "在玩"},
		{catalog.SubjectGame, catalog.StatusWish, "想玩"},
		{catalog.SubjectBook, catalog.StatusDone, "读过"},
		{catalog.SubjectMusic, catalog.StatusWish, "想听"},
		{catalog.SubjectMusic, catalog.StatusOnHold, "搁置"},
		{catalog.SubjectBook, catalog.StatusDropped, "抛弃"},
		{catalog.SubjectType(99), catalog.StatusDone, "看过"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, table.Label(tc.subject, tc.status))
	}
}

func TestSubjectTypeFromCode(t *testing.T) {
	assert.Equal(t, catalog.SubjectReal, catalog.SubjectTypeFromCode(6))
	assert.Equal(t, catalog.SubjectUnknown, catalog.SubjectTypeFromCode(5))
	assert.Equal(t, "未知", catalog.SubjectTypeFromCode(42).Label())
	assert.Equal(t, "动画", catalog.SubjectAnime.Label())
}

func TestCollectionStatusCodes(t *testing.T) {
	status, ok := catalog.CollectionStatusFromCode(4)
	require.True(t, ok)
	assert.Equal(t, catalog.StatusOnHold, status)
	assert.Equal(t, "on_hold", status.String())

	_, ok = catalog.CollectionStatusFromCode(9)
	assert.False(t, ok)

	parsed, ok := catalog.ParseCollectionStatus("Dropped")
	require.True(t, ok)
	assert.Equal(t, catalog.StatusDropped, parsed)
}

func TestEncodeRanges(t *testing.T) {
	cases := []struct {
		in   []int
		want string
	}{
		{nil, ""},
		{[]int{3}, "3"},
		{[]int{1, 2}, "1-2"},
		{[]int{1, 2, 3, 4, 5, 7, 9, 10, 11, 12}, "1-5,7,9-12"},
		{[]int{12, 9, 7, 7, 1, 0, -2, 2}, "1-2,7,9,12"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, catalog.EncodeRanges(tc.in), "input %v", tc.in)
	}
}

func TestRangesRoundTrip(t *testing.T) {
	sets := [][]int{
		{1},
		{1, 2, 3, 4, 5, 7, 9, 10, 11, 12},
		{2, 4, 6, 8},
		{100, 101, 102, 250},
	}
	for _, set := range sets {
		decoded, err := catalog.DecodeRanges(catalog.EncodeRanges(set))
		require.NoError(t, err)
		assert.Equal(t, set, decoded)
	}
}

func TestDecodeRangesRejectsGarbage(t *testing.T) {
	for _, input := range []string{"a", "3-1", "0", "1-x"} {
		_, err := catalog.DecodeRanges(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestDetailInfoRendering(t *testing.T) {
	detail := &catalog.DetailInfo{Completed: 2, Total: 3, Watched: []int{1, 2}}
	assert.Equal(t, "2/3", detail.Progress())
	assert.Equal(t, "67%", detail.PercentLabel())
	assert.Equal(t, "1-2", detail.Notation())

	empty := &catalog.DetailInfo{}
	_, ok := empty.Percent()
	assert.False(t, ok)
	assert.Equal(t, "", empty.PercentLabel())

	var missing *catalog.DetailInfo
	assert.Equal(t, "", missing.Progress())
	assert.Equal(t, "", missing.Notation())
}
