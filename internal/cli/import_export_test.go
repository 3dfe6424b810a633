package cli

import (
	"encoding/json"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventdb/internal/gate"
	"github.com/roach88/eventdb/internal/store"
)

func assertGolden(t *testing.T, name, actual string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(actual))
}

func TestImport(t *testing.T) {
	path := testDBPath(t)

	res := runCLI(t, nil, testEvents, "import", "--db", path, "--format", "json")
	require.NoError(t, res.err)

	var resp struct {
		Status string       `json:"status"`
		Data   ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Processed)
	assert.Equal(t, 3, resp.Data.Inserted)
	assert.Equal(t, 0, resp.Data.Duplicates)
	assert.Len(t, resp.Data.EventsRoot, 64)
	assert.NotEqual(t, strings.Repeat("0", 64), resp.Data.EventsRoot)
}

func TestImport_DuplicatesAndInvalid(t *testing.T) {
	path := testDBPath(t)
	require.NoError(t, runCLI(t, nil, testEvents, "import", "--db", path).err)

	input := testEvents + "not json\n\n" + `{"id":"e4","pubkey":"p3","created_at":400,"kind":1,"tags":[],"content":"fourth","sig":"s4"}` + "\n"
	res := runCLI(t, nil, input, "import", "--db", path, "--batch-size", "2")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Imported 5 events (1 new, 3 duplicate, 1 invalid)")
	assert.Contains(t, res.stderr, "skipping invalid event")
}

func TestImport_Strict(t *testing.T) {
	path := testDBPath(t)

	res := runCLI(t, nil, "not json\n", "import", "--db", path, "--strict")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, GetExitCode(res.err))
	assert.Contains(t, res.err.Error(), "line 1")
}

func TestImport_InvalidBatchSize(t *testing.T) {
	res := runCLI(t, nil, "", "import", "--db", testDBPath(t), "--batch-size", "0")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
}

func TestImport_RootIndependentOfBatching(t *testing.T) {
	roots := make([]string, 0, 3)
	for _, batch := range []string{"1", "2", "100"} {
		res := runCLI(t, nil, testEvents, "import", "--db", testDBPath(t), "--batch-size", batch, "--format", "json")
		require.NoError(t, res.err)

		var resp struct {
			Data ImportResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
		roots = append(roots, resp.Data.EventsRoot)
	}
	assert.Equal(t, roots[0], roots[1])
	assert.Equal(t, roots[0], roots[2])
}

func TestExport_Golden(t *testing.T) {
	path := testDBPath(t)
	require.NoError(t, runCLI(t, nil, testEvents, "import", "--db", path).err)

	res := runCLI(t, nil, "", "export", "--db", path)
	require.NoError(t, res.err)
	assertGolden(t, "export_all", res.stdout)

	res = runCLI(t, nil, "", "export", "--db", path, "--since", "200")
	require.NoError(t, res.err)
	assertGolden(t, "export_since_200", res.stdout)

	res = runCLI(t, nil, "", "export", "--db", path, "--since", "150", "--until", "250")
	require.NoError(t, res.err)
	assert.Equal(t, strings.Split(testEvents, "\n")[1]+"\n", res.stdout)
}

func TestExport_RoundTrip(t *testing.T) {
	src := testDBPath(t)
	require.NoError(t, runCLI(t, nil, testEvents, "import", "--db", src).err)

	exported := runCLI(t, nil, "", "export", "--db", src)
	require.NoError(t, exported.err)

	dst := testDBPath(t)
	require.NoError(t, runCLI(t, nil, exported.stdout, "import", "--db", dst).err)

	a := runCLI(t, nil, "", "info", "--db", src, "--format", "json")
	b := runCLI(t, nil, "", "info", "--db", dst, "--format", "json")
	require.NoError(t, a.err)
	require.NoError(t, b.err)

	var infoA, infoB struct {
		Data InfoResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(a.stdout), &infoA))
	require.NoError(t, json.Unmarshal([]byte(b.stdout), &infoB))
	assert.Equal(t, infoA.Data.EventsRoot, infoB.Data.EventsRoot)
	assert.Equal(t, int64(3), infoB.Data.Events)
}

// A store written before metadata and the events tree existed.
func TestExport_LegacyStore(t *testing.T) {
	path := testDBPath(t)
	createLegacyStore(t, path, testEvents)
	before := readLayout(t, path)

	res := runCLI(t, nil, "", "import", "--db", path)
	require.Error(t, res.err)
	assert.True(t, gate.IsTooOld(res.err))
	assert.Contains(t, res.err.Error(), "too old: 0")
	assert.Equal(t, before, readLayout(t, path), "rejected import must not touch the store")

	res = runCLI(t, nil, "", "export", "--db", path)
	require.NoError(t, res.err)
	assert.Equal(t, testEvents, res.stdout)
	assert.Equal(t, before, readLayout(t, path), "export must not touch the store")
}

func TestExport_OlderVersionLeavesStoreUntouched(t *testing.T) {
	path := testDBPath(t)
	seedMeta(t, path, store.Meta{DBVersion: gate.CurrentDBVersion - 1, Endianness: 1})
	before := readLayout(t, path)
	require.Equal(t, "delete", before.JournalMode)

	res := runCLI(t, nil, "", "export", "--db", path)
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
	assert.Equal(t, before, readLayout(t, path))
}

func TestExport_MissingDatabase(t *testing.T) {
	path := testDBPath(t)

	res := runCLI(t, nil, "", "export", "--db", path)
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.ErrorIs(t, res.err, fs.ErrNotExist)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "export must not create the database")
}

func TestImport_EnablesWAL(t *testing.T) {
	path := testDBPath(t)
	require.NoError(t, runCLI(t, nil, testEvents, "import", "--db", path).err)

	assert.Equal(t, "wal", readLayout(t, path).JournalMode)
}

func TestInfo_JSON(t *testing.T) {
	path := testDBPath(t)
	require.NoError(t, runCLI(t, nil, testEvents, "import", "--db", path).err)

	res := runCLI(t, nil, "", "info", "--db", path, "--format", "json")
	require.NoError(t, res.err)

	var resp struct {
		Status string     `json:"status"`
		Data   InfoResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, path, resp.Data.Path)
	assert.Equal(t, gate.CurrentDBVersion, resp.Data.DBVersion)
	assert.Equal(t, gate.NativeEndianness, resp.Data.Endianness)
	assert.Equal(t, int64(3), resp.Data.Events)
	assert.Equal(t, int64(3), resp.Data.TrieLeaves)
}
