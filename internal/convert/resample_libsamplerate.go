//go:build !windows && cgo

package convert

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef struct {
	float *data_in, *data_out;
	long input_frames, output_frames;
	long input_frames_used, output_frames_gen;
	int end_of_input;
	double src_ratio;
} src_data_t;

typedef int (*src_simple_fn)(src_data_t *data, int converter_type, int channels);

static void *lsr_handle = NULL;
static src_simple_fn lsr_src_simple = NULL;

static int lsr_load(const char *path) {
	if (lsr_handle != NULL) {
		return lsr_src_simple != NULL;
	}
	if (path != NULL && path[0] != 0) {
		lsr_handle = dlopen(path, RTLD_NOW);
	}
	if (lsr_handle == NULL) {
		const char *names[] = {
			"libsamplerate.so.0",
			"libsamplerate.so",
			"libsamplerate.dylib",
			NULL,
		};
		for (int i = 0; names[i] != NULL; i++) {
			lsr_handle = dlopen(names[i], RTLD_NOW);
			if (lsr_handle != NULL) {
				break;
			}
		}
	}
	if (lsr_handle == NULL) {
		return 0;
	}
	lsr_src_simple = (src_simple_fn)dlsym(lsr_handle, "src_simple");
	return lsr_src_simple != NULL;
}

static int lsr_call(float *in, long inFrames, float *out, long outFrames,
                     double ratio, int channels, int converterType, long *usedIn, long *usedOut) {
	src_data_t d;
	d.data_in = in;
	d.data_out = out;
	d.input_frames = inFrames;
	d.output_frames = outFrames;
	d.src_ratio = ratio;
	d.end_of_input = 1;
	int rc = lsr_src_simple(&d, converterType, channels);
	*usedIn = d.input_frames_used;
	*usedOut = d.output_frames_gen;
	return rc;
}
*/
import "C"

import (
	"errors"
	"os"
	"sync"
	"unsafe"
)

// SRC converter type constants from samplerate.h, mirrored here so this
// package doesn't need the real header at build time.
const (
	srcSincBestQuality   = 0
	srcSincMediumQuality = 1
	srcSincFastest       = 2
)

var (
	lsrOnce      sync.Once
	lsrAvailable bool
)

// libsamplerateAvailable loads libsamplerate on first use, honoring
// LIBSAMPLERATE_PATH, and permanently remembers whether it succeeded. This
// is the dlopen tier of spec §4.7's resampler priority list, same dynamic
// loading idiom as the Linux PipeWire backend's cgo dlopen use.
func libsamplerateAvailable() bool {
	lsrOnce.Do(func() {
		path := os.Getenv("LIBSAMPLERATE_PATH")
		cpath := C.CString(path)
		defer C.free(unsafe.Pointer(cpath))
		lsrAvailable = C.lsr_load(cpath) != 0
	})
	return lsrAvailable
}

func converterTypeFor(q ResampleQuality) C.int {
	switch q {
	case QualityMedium:
		return srcSincMediumQuality
	case QualityFast:
		return srcSincFastest
	default:
		return srcSincBestQuality
	}
}

// ResampleLibsamplerate resamples via the dynamically loaded libsamplerate,
// if available. Returns an error if the library could not be loaded.
func ResampleLibsamplerate(input []float32, channels int, srcRate, dstRate uint32, quality ResampleQuality) ([]float32, error) {
	if !libsamplerateAvailable() {
		return nil, errors.New("convert: libsamplerate not available")
	}

	frames := len(input) / channels
	ratio := float64(dstRate) / float64(srcRate)
	outFrames := int(float64(frames)*ratio) + 2

	out := make([]float32, outFrames*channels)
	if len(input) == 0 {
		return nil, nil
	}

	var usedIn, usedOut C.long
	rc := C.lsr_call(
		(*C.float)(unsafe.Pointer(&input[0])), C.long(frames),
		(*C.float)(unsafe.Pointer(&out[0])), C.long(outFrames),
		C.double(ratio), C.int(channels), converterTypeFor(quality),
		&usedIn, &usedOut,
	)
	if rc != 0 {
		return nil, errors.New("convert: libsamplerate src_simple failed")
	}
	return out[:int(usedOut)*channels], nil
}
