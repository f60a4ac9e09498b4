package jellyfin

import (
	"context"
	"fmt"
)

// GetVirtualFolders returns all configured libraries with their disk paths.
func (c *Client) GetVirtualFolders(ctx context.Context) ([]VirtualFolder, error) {
	var folders []VirtualFolder
	if err := c.get(ctx, "/Library/VirtualFolders", nil, &folders); err != nil {
		return nil, fmt.Errorf("getting virtual folders: %w", err)
	}
	return folders, nil
}
