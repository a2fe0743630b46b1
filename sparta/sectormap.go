package sparta

import "github.com/eightbitatr/atrfs/common"

// A map sector's first two 2-byte LE words are next/previous map-sector
// pointers; the rest of the sector is an array of 2-byte LE data-sector
// indices (0 meaning a sparse, unallocated hole).
const (
	mapOffNext = 0
	mapOffPrev = 2
	mapOffSlots = 4
)

// slotsPerMapSector returns how many data-sector slots one map sector holds.
func slotsPerMapSector(sectorSize uint) int {
	return (int(sectorSize) - mapOffSlots) / 2
}

func mapNext(sec []byte) uint16 { return common.ReadUint16LE(sec[mapOffNext:]) }
func mapPrev(sec []byte) uint16 { return common.ReadUint16LE(sec[mapOffPrev:]) }

func setMapNext(sec []byte, v uint16) { common.WriteUint16LE(sec[mapOffNext:], v) }
func setMapPrev(sec []byte, v uint16) { common.WriteUint16LE(sec[mapOffPrev:], v) }

func mapSlot(sec []byte, i int) uint16 {
	off := mapOffSlots + i*2
	return common.ReadUint16LE(sec[off:])
}

func setMapSlot(sec []byte, i int, v uint16) {
	off := mapOffSlots + i*2
	common.WriteUint16LE(sec[off:], v)
}
