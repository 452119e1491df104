package cdplisten_test

import (
	"context"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/disposer/pkg/sources/cdplisten"
)

func TestRejectsPlainContext(t *testing.T) {
	t.Parallel()

	_, err := cdplisten.Target(context.Background(), func(any) {})
	require.ErrorIs(t, err, chromedp.ErrInvalidContext)

	_, err = cdplisten.Browser(context.Background(), func(any) {})
	require.ErrorIs(t, err, chromedp.ErrInvalidContext)
}

func TestRejectsUnallocatedTab(t *testing.T) {
	t.Parallel()

	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	_, err := cdplisten.Target(ctx, func(any) {})
	require.ErrorIs(t, err, cdplisten.ErrNotAllocated)

	_, err = cdplisten.Browser(ctx, func(any) {})
	require.ErrorIs(t, err, cdplisten.ErrNotAllocated)

	_, err = cdplisten.Target(ctx, nil)
	require.Error(t, err)
}
