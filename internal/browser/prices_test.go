package browser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const runnerRowHTML = `
<div class="runner">
  <div class="runner-info">
    <div class="number">4</div>
    <div class="name">Speedy</div>
  </div>
  <div class="price win">2.50</div>
  <div class="price place">1.10</div>
</div>`

func TestExtractPrices(t *testing.T) {
	win, place, err := extractPrices(runnerRowHTML)
	require.NoError(t, err)
	require.Equal(t, "2.50", win)
	require.Equal(t, "1.10", place)
}

func TestExtractPricesEmptyTextIsValid(t *testing.T) {
	html := `<div class="runner"><div class="price win">  </div><div class="price place"></div></div>`
	win, place, err := extractPrices(html)
	require.NoError(t, err)
	require.Empty(t, win)
	require.Empty(t, place)
}

func TestExtractPricesMissingCells(t *testing.T) {
	html := `<div class="runner"><div class="runner-info"><div class="number">4</div></div></div>`
	_, _, err := extractPrices(html)
	require.Error(t, err)
}
