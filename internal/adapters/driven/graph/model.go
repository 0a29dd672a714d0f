package graph

import (
	"time"

	"github.com/custodia-labs/intunesync/internal/core/domain"
)

// managedDeviceFields is the $select list for device listings.
const managedDeviceFields = "id,deviceName,operatingSystem,lastSyncDateTime,userPrincipalName"

// managedDevice is the wire shape of a Graph managedDevice.
type managedDevice struct {
	ID                string     `json:"id"`
	DeviceName        string     `json:"deviceName"`
	OperatingSystem   string     `json:"operatingSystem"`
	LastSyncDateTime  *time.Time `json:"lastSyncDateTime"`
	UserPrincipalName string     `json:"userPrincipalName"`
}

// devicePage is one page of a managedDevices listing.
type devicePage struct {
	Value    []managedDevice `json:"value"`
	NextLink string          `json:"@odata.nextLink"`
}

// neverSynced is the sentinel Graph reports for devices that never checked in.
var neverSynced = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)

func (d managedDevice) toDomain() domain.Device {
	device := domain.Device{
		ID:       d.ID,
		Name:     d.DeviceName,
		Platform: d.OperatingSystem,
		Owner:    d.UserPrincipalName,
	}
	if d.LastSyncDateTime != nil && !d.LastSyncDateTime.IsZero() && !d.LastSyncDateTime.Equal(neverSynced) {
		t := d.LastSyncDateTime.UTC()
		device.LastSyncAt = &t
	}
	return device
}
