package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/jonathan/application-assistant/internal/config"
	"github.com/jonathan/application-assistant/internal/db"
	"github.com/jonathan/application-assistant/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintApplications(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	for _, company := range []string{"Acme", "Globex"} {
		_, err := store.Save(ctx, &types.ApplicationRecord{
			OwnerID:       "user-1",
			Company:       company,
			JobTitle:      "SRE",
			ToolsSelected: []types.ToolName{types.ToolResume},
			Outputs:       types.Outputs{types.ToolResume: "Jane Doe"},
			Status:        types.StatusApplied,
		})
		require.NoError(t, err)
	}
	_, err := store.Save(ctx, &types.ApplicationRecord{OwnerID: "user-2", Company: "Initech", Status: types.StatusApplied})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printApplications(ctx, &out, store, "user-1"))

	assert.Contains(t, out.String(), "Acme")
	assert.Contains(t, out.String(), "Globex")
	assert.NotContains(t, out.String(), "Initech")
	assert.Equal(t, 2, bytes.Count(out.Bytes(), []byte("APPLICATION")))
}

func TestPrintApplications_None(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printApplications(context.Background(), &out, db.NewMemoryStore(), "ghost"))
	assert.Equal(t, "No applications for ghost\n", out.String())
}

func TestOpenDatabase_RequiresURL(t *testing.T) {
	_, err := openDatabase(context.Background(), &app{cfg: &config.Config{}})
	assert.ErrorContains(t, err, "DATABASE_URL")
}
