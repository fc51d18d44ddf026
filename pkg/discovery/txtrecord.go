package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bacstack/bacnet-go/pkg/model"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeDeviceTXT creates the TXT records advertising a device handle.
// The address is carried by the SRV/A records, not the TXT records.
func EncodeDeviceTXT(dev *RemoteDevice) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyDeviceInstance] = strconv.FormatUint(uint64(dev.ID), 10)
	if dev.MaxAPDU > 0 {
		txt[TXTKeyMaxAPDU] = strconv.FormatUint(uint64(dev.MaxAPDU), 10)
	}
	txt[TXTKeySegmentation] = strconv.FormatUint(uint64(dev.Segmentation), 10)
	txt[TXTKeyVendorID] = strconv.FormatUint(uint64(dev.VendorID), 10)
	if dev.ReadMultiple {
		txt[TXTKeyReadMultiple] = "1"
	} else {
		txt[TXTKeyReadMultiple] = "0"
	}
	if dev.Name != "" {
		txt[TXTKeyDeviceName] = dev.Name
	}

	return txt
}

// DecodeDeviceTXT parses the TXT records of an advertised device.
// The returned handle has no address.
func DecodeDeviceTXT(txt TXTRecordMap) (*RemoteDevice, error) {
	dev := &RemoteDevice{
		MaxAPDU:      DefaultMaxAPDU,
		Segmentation: SegmentationNone,
	}

	// Device instance (required)
	diStr, ok := txt[TXTKeyDeviceInstance]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyDeviceInstance)
	}
	di, err := strconv.ParseUint(diStr, 10, 32)
	if err != nil || uint32(di) > model.MaxInstance {
		return nil, fmt.Errorf("%w: invalid device instance %q", ErrInvalidTXTRecord, diStr)
	}
	dev.ID = model.DeviceID(di)

	if s, ok := txt[TXTKeyMaxAPDU]; ok {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("%w: invalid max APDU %q", ErrInvalidTXTRecord, s)
		}
		dev.MaxAPDU = uint32(n)
	}

	if s, ok := txt[TXTKeySegmentation]; ok {
		n, err := strconv.ParseUint(s, 10, 8)
		if err != nil || n > uint64(SegmentationNone) {
			return nil, fmt.Errorf("%w: invalid segmentation %q", ErrInvalidTXTRecord, s)
		}
		dev.Segmentation = Segmentation(n)
	}

	// Optional fields
	if s, ok := txt[TXTKeyVendorID]; ok {
		if n, err := strconv.ParseUint(s, 10, 16); err == nil {
			dev.VendorID = uint16(n)
		}
	}
	dev.ReadMultiple = txt[TXTKeyReadMultiple] == "1"
	dev.Name = txt[TXTKeyDeviceName]

	return dev, nil
}

// InstanceName returns the DNS-SD instance name for a device.
func InstanceName(dev *RemoteDevice) string {
	name := "BACnet-" + strconv.FormatUint(uint64(dev.ID), 10)
	if dev.Name != "" {
		name = dev.Name + " (" + strconv.FormatUint(uint64(dev.ID), 10) + ")"
	}
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if found {
			txt[k] = v
		} else if k != "" {
			// Key without value (boolean flag)
			txt[k] = ""
		}
	}
	return txt
}
