package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeCommissionableTXT creates TXT records for commissionable discovery.
func EncodeCommissionableTXT(info *CommissionableInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	// Required fields
	txt[TXTKeyDiscriminator] = strconv.FormatUint(uint64(info.Discriminator), 10)
	txt[TXTKeyCommissioningMode] = strconv.FormatUint(uint64(info.CommissioningMode), 10)
	txt[TXTKeyVendorProd] = encodeVendorProduct(info.VendorID, info.ProductID)

	// Optional fields
	if info.DeviceType != 0 {
		txt[TXTKeyDeviceType] = strconv.FormatUint(uint64(info.DeviceType), 10)
	}
	if info.DeviceName != "" {
		txt[TXTKeyDeviceName] = truncate(info.DeviceName, MaxDeviceNameLen)
	}

	return txt
}

// DecodeCommissionableTXT parses TXT records from commissionable discovery.
func DecodeCommissionableTXT(txt TXTRecordMap) (*CommissionableInfo, error) {
	info := &CommissionableInfo{}

	dStr, ok := txt[TXTKeyDiscriminator]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyDiscriminator)
	}
	d, err := strconv.ParseUint(dStr, 10, 16)
	if err != nil || d > MaxDiscriminator {
		return nil, ErrInvalidDiscriminator
	}
	info.Discriminator = uint16(d)

	cmStr, ok := txt[TXTKeyCommissioningMode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyCommissioningMode)
	}
	cm, err := strconv.ParseUint(cmStr, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyCommissioningMode, cmStr)
	}
	info.CommissioningMode = CommissioningMode(cm)

	if vp, ok := txt[TXTKeyVendorProd]; ok {
		info.VendorID, info.ProductID, err = decodeVendorProduct(vp)
		if err != nil {
			return nil, err
		}
	}

	if dt, ok := txt[TXTKeyDeviceType]; ok {
		n, err := strconv.ParseUint(dt, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyDeviceType, dt)
		}
		info.DeviceType = uint32(n)
	}
	info.DeviceName = txt[TXTKeyDeviceName]

	return info, nil
}

// EncodeOperationalTXT creates TXT records for operational discovery.
func EncodeOperationalTXT(info *OperationalInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyNodeID] = fmt.Sprintf("%016X", info.NodeID)
	txt[TXTKeyVendorProd] = encodeVendorProduct(info.VendorID, info.ProductID)

	if info.DeviceName != "" {
		txt[TXTKeyDeviceName] = truncate(info.DeviceName, MaxDeviceNameLen)
	}
	if info.EndpointCount > 0 {
		txt[TXTKeyEndpoints] = strconv.FormatUint(uint64(info.EndpointCount), 10)
	}
	if info.TopicPrefix != "" {
		txt[TXTKeyTopicPrefix] = info.TopicPrefix
	}

	return txt
}

// DecodeOperationalTXT parses TXT records from operational discovery.
func DecodeOperationalTXT(txt TXTRecordMap) (*OperationalInfo, error) {
	info := &OperationalInfo{}

	niStr, ok := txt[TXTKeyNodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyNodeID)
	}
	ni, err := strconv.ParseUint(niStr, 16, 64)
	if err != nil || len(niStr) != 16 {
		return nil, fmt.Errorf("%w: invalid node ID %q", ErrInvalidTXTRecord, niStr)
	}
	info.NodeID = ni

	if vp, ok := txt[TXTKeyVendorProd]; ok {
		info.VendorID, info.ProductID, err = decodeVendorProduct(vp)
		if err != nil {
			return nil, err
		}
	}

	info.DeviceName = txt[TXTKeyDeviceName]
	info.TopicPrefix = txt[TXTKeyTopicPrefix]

	if epStr, ok := txt[TXTKeyEndpoints]; ok {
		ep, err := strconv.ParseUint(epStr, 10, 8)
		if err == nil {
			info.EndpointCount = uint8(ep)
		}
	}

	return info, nil
}

// encodeVendorProduct formats VP as "<vendor>+<product>" in decimal.
func encodeVendorProduct(vendorID, productID uint16) string {
	return fmt.Sprintf("%d+%d", vendorID, productID)
}

func decodeVendorProduct(s string) (vendorID, productID uint16, err error) {
	vStr, pStr, found := strings.Cut(s, "+")
	v, err := strconv.ParseUint(vStr, 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyVendorProd, s)
	}
	if !found {
		return uint16(v), 0, nil
	}
	p, err := strconv.ParseUint(pStr, 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyVendorProd, s)
	}
	return uint16(v), uint16(p), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// TXTRecordsToStrings converts a TXTRecordMap to a sorted slice of
// "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateTXTSize checks the encoded size of the records. Each string
// carries a one-byte length prefix on the wire.
func ValidateTXTSize(strs []string) error {
	size := 0
	for _, s := range strs {
		size += len(s) + 1
	}
	if size > MaxTXTRecordSize {
		return fmt.Errorf("%w: %d bytes", ErrTXTTooLarge, size)
	}
	return nil
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
