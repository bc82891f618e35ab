package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "sparks", cmd.Use)
	assert.Contains(t, cmd.Long, "API_BASE_URL")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"products"},
		{"product"},
		{"browse"},
		{"cart"},
		{"cart", "show"},
		{"cart", "add"},
		{"cart", "update"},
		{"cart", "remove"},
		{"cart", "inc"},
		{"cart", "dec"},
		{"devserver"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestProductsCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	productsCmd, _, err := cmd.Find([]string{"products"})
	require.NoError(t, err)

	for _, name := range []string{"search", "category", "sub-category", "brand", "min-price", "max-price", "pages"} {
		assert.NotNil(t, productsCmd.Flags().Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, "s", productsCmd.Flags().Lookup("search").Shorthand)
	assert.Equal(t, "0", productsCmd.Flags().Lookup("pages").DefValue)
}

func TestCartAddCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	addCmd, _, err := cmd.Find([]string{"cart", "add"})
	require.NoError(t, err)

	qty := addCmd.Flags().Lookup("qty")
	require.NotNil(t, qty)
	assert.Equal(t, "1", qty.DefValue)
	assert.Equal(t, "q", qty.Shorthand)
	assert.NotNil(t, addCmd.Flags().Lookup("variant"))
	assert.NotNil(t, addCmd.Flags().Lookup("color"))
	assert.NotNil(t, addCmd.Flags().Lookup("size"))
}

func TestBrowseCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	browseCmd, _, err := cmd.Find([]string{"browse"})
	require.NoError(t, err)

	assert.NotNil(t, browseCmd.Flags().Lookup("metrics-addr"))
	assert.NotNil(t, browseCmd.Flags().Lookup("search"))
}

func TestInvalidFormat(t *testing.T) {
	cmd := newRootCommand(&RootOptions{})
	cmd.SetArgs([]string{"products", "--format", "xml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}
