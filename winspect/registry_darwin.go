//go:build darwin && cgo

package winspect

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <stdlib.h>
#include <CoreGraphics/CoreGraphics.h>

typedef struct {
    int32_t ownerPID;
    char    ownerName[256];
    int32_t layer;
    int32_t sharingState;
    double  x;
    double  y;
    double  width;
    double  height;
    int32_t onScreen;
} vigil_window_t;

// vigil_copy_windows snapshots the compositor registry, on-screen and off.
// Returns the number of windows written, or -1 on registry failure.
static int vigil_copy_windows(vigil_window_t **out) {
    CFArrayRef list = CGWindowListCopyWindowInfo(kCGWindowListOptionAll, kCGNullWindowID);
    if (!list) {
        return -1;
    }

    CFIndex total = CFArrayGetCount(list);
    if (total == 0) {
        CFRelease(list);
        *out = NULL;
        return 0;
    }

    vigil_window_t *windows = calloc(total, sizeof(vigil_window_t));
    if (!windows) {
        CFRelease(list);
        return -1;
    }

    int count = 0;
    for (CFIndex i = 0; i < total; i++) {
        CFDictionaryRef info = (CFDictionaryRef)CFArrayGetValueAtIndex(list, i);
        vigil_window_t *w = &windows[count];

        CFNumberRef pidRef = (CFNumberRef)CFDictionaryGetValue(info, kCGWindowOwnerPID);
        if (!pidRef || !CFNumberGetValue(pidRef, kCFNumberSInt32Type, &w->ownerPID)) {
            continue;
        }

        CFStringRef nameRef = (CFStringRef)CFDictionaryGetValue(info, kCGWindowOwnerName);
        if (nameRef) {
            CFStringGetCString(nameRef, w->ownerName, sizeof(w->ownerName), kCFStringEncodingUTF8);
        }

        CFNumberRef layerRef = (CFNumberRef)CFDictionaryGetValue(info, kCGWindowLayer);
        if (layerRef) {
            CFNumberGetValue(layerRef, kCFNumberSInt32Type, &w->layer);
        }

        CFNumberRef sharingRef = (CFNumberRef)CFDictionaryGetValue(info, kCGWindowSharingState);
        if (sharingRef) {
            CFNumberGetValue(sharingRef, kCFNumberSInt32Type, &w->sharingState);
        }

        CFDictionaryRef boundsRef = (CFDictionaryRef)CFDictionaryGetValue(info, kCGWindowBounds);
        if (boundsRef) {
            CGRect rect;
            if (CGRectMakeWithDictionaryRepresentation(boundsRef, &rect)) {
                w->x = rect.origin.x;
                w->y = rect.origin.y;
                w->width = rect.size.width;
                w->height = rect.size.height;
            }
        }

        CFBooleanRef onScreenRef = (CFBooleanRef)CFDictionaryGetValue(info, kCGWindowIsOnscreen);
        w->onScreen = (onScreenRef && CFBooleanGetValue(onScreenRef)) ? 1 : 0;

        count++;
    }

    CFRelease(list);
    *out = windows;
    return count;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

type hostRegistry struct{}

func (hostRegistry) ListWindows() ([]Window, error) {
	var raw *C.vigil_window_t
	n := C.vigil_copy_windows(&raw)
	if n < 0 {
		return nil, fmt.Errorf("window registry query failed")
	}
	if n == 0 || raw == nil {
		return nil, nil
	}
	defer C.free(unsafe.Pointer(raw))

	slice := unsafe.Slice(raw, int(n))
	windows := make([]Window, 0, int(n))
	for i := range slice {
		w := &slice[i]
		windows = append(windows, Window{
			OwnerPID:     int32(w.ownerPID),
			OwnerName:    C.GoString(&w.ownerName[0]),
			Layer:        int(w.layer),
			SharingState: int(w.sharingState),
			X:            float64(w.x),
			Y:            float64(w.y),
			Width:        float64(w.width),
			Height:       float64(w.height),
			OnScreen:     w.onScreen != 0,
		})
	}
	return windows, nil
}
