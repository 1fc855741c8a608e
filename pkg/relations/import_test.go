package relations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const report = `Story ID,Event ID,Sequence ID,Triplet ID,Subject,Action,Object
1,10,2,100,crowd,threat,sheriff
2,11,1,101,,surrender,"police, county"
`

func TestReadImport(t *testing.T) {
	rows, err := ReadImport(strings.NewReader(report))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ImportRow{
		StoryID: 1, EventID: 10, SequenceID: 2, TripletID: 100,
		Subject: "crowd", Action: "threat", Object: "sheriff",
	}, rows[0])
	assert.Equal(t, "", rows[1].Subject)
	assert.Equal(t, "police, county", rows[1].Object)
}

func TestReadImportHeaderOnly(t *testing.T) {
	rows, err := ReadImport(strings.NewReader("story_id,event_id,sequence_id,triplet_id,subject,action,object\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = ReadImport(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadImportReportsEveryBadLine(t *testing.T) {
	_, err := ReadImport(strings.NewReader(report +
		"x,10,2,100,crowd,threat,sheriff\n" +
		"1,10,2,100,crowd,threat\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRow)
	assert.Contains(t, err.Error(), `line 4: story_id "x"`)
	assert.Contains(t, err.Error(), "line 5: 6 fields, want 7")
}
