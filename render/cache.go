package render

import (
	"bytes"
	"encoding/binary"
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/triangle/report"
)

// PipelineCacheHeader is the fixed prefix every driver writes in front of
// its pipeline cache data.
type PipelineCacheHeader struct {
	Length    uint32
	Version   common.PipelineCacheHeaderVersion
	VendorID  uint32
	DeviceID  uint32
	CacheUUID uuid.UUID
}

const pipelineCacheHeaderSize = 16 + len(uuid.UUID{})

func ReadPipelineCacheHeader(data []byte) (PipelineCacheHeader, error) {
	var header PipelineCacheHeader
	if len(data) < pipelineCacheHeaderSize {
		return header, errors.Newf("pipeline cache is %d bytes, shorter than its header", len(data))
	}

	err := binary.Read(bytes.NewReader(data), common.ByteOrder, &header)
	if err != nil {
		return header, errors.Wrap(err, "decode pipeline cache header")
	}
	return header, nil
}

// Matches reports why cache data written under this header cannot be used
// with a device, or nil if it can.
func (h PipelineCacheHeader) Matches(props DeviceProperties) error {
	if int(h.Length) < pipelineCacheHeaderSize {
		return errors.Newf("bad header length 0x%x", h.Length)
	}
	if h.Version != common.PipelineCacheHeaderVersion1 {
		return errors.Newf("unsupported header version 0x%x", h.Version)
	}
	if h.VendorID != props.VendorID {
		return errors.Newf("vendor id mismatch: cache has 0x%x, driver expects 0x%x", h.VendorID, props.VendorID)
	}
	if h.DeviceID != props.DeviceID {
		return errors.Newf("device id mismatch: cache has 0x%x, driver expects 0x%x", h.DeviceID, props.DeviceID)
	}
	if h.CacheUUID != props.PipelineCacheUUID {
		return errors.Newf("uuid mismatch: cache has %s, driver expects %s", h.CacheUUID, props.PipelineCacheUUID)
	}
	return nil
}

// LoadPipelineCache returns the cache data stored at path if it was written
// for the given device. Missing or mismatched data is reported to sink and
// yields nil, which starts an empty cache.
func LoadPipelineCache(path string, props DeviceProperties, sink report.Sink) []byte {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		report.Logf(sink, report.Info, "no pipeline cache at %s, starting empty", path)
		return nil
	} else if err != nil {
		report.Logf(sink, report.Warn, "read pipeline cache %s: %v", path, err)
		return nil
	}

	header, err := ReadPipelineCacheHeader(data)
	if err == nil {
		err = header.Matches(props)
	}
	if err != nil {
		report.Logf(sink, report.Warn, "ignoring pipeline cache %s: %v", path, err)
		return nil
	}

	report.Logf(sink, report.Info, "loaded %d bytes of pipeline cache from %s", len(data), path)
	return data
}

func SavePipelineCache(path string, data []byte) error {
	if path == "" || len(data) == 0 {
		return nil
	}

	err := os.WriteFile(path, data, 0666)
	if err != nil {
		return errors.Wrapf(err, "write pipeline cache %s", path)
	}
	return nil
}
