//go:build windows

package envcheck

import "golang.org/x/sys/windows"

// diskFree returns the free bytes available to the current user on the
// volume holding path.
func diskFree(path string) (uint64, error) {
	var freeToCaller, total, free uint64
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	if err := windows.GetDiskFreeSpaceEx(p, &freeToCaller, &total, &free); err != nil {
		return 0, err
	}
	return freeToCaller, nil
}
