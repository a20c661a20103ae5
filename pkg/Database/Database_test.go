package Database

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"RangeSSE/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	input := "id,keyword,op\n1,5\n2, 5, INS\n1,5,DEL\n3,9,delete\n"
	got, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []utils.Record{
		utils.NewInsert(1, 5),
		utils.NewInsert(2, 5),
		utils.NewDelete(1, 5),
		utils.NewDelete(3, 9),
	}, got)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "keyword", input: "1,x\n"},
		{name: "op", input: "1,2,upsert\n"},
		{name: "fields", input: "1\n"},
		{name: "id after header", input: "id,keyword\nfoo,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, utils.ErrMalformedEncoding)
		})
	}
}

func TestCSVFile(t *testing.T) {
	records := []utils.Record{utils.NewInsert(7, 70), utils.NewDelete(7, 70)}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	got, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMongoRecords(t *testing.T) {
	uri := os.Getenv("RANGESSE_MONGO_URI")
	if uri == "" {
		t.Skip("RANGESSE_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := MongoDBSetup(ctx, uri, "rangesse_test")
	require.NoError(t, err)
	defer db.Client().Disconnect(ctx)

	coll := "records_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	defer db.Collection(coll).Drop(ctx)

	records := []utils.Record{utils.NewInsert(1, 5), utils.NewInsert(2, 5), utils.NewDelete(1, 5)}
	require.NoError(t, SeedRecords(ctx, db, coll, records))
	got, err := LoadRecords(ctx, db, coll)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}
