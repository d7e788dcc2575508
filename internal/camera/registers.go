package camera

import (
	"github.com/tabwork/hwcore/internal/regio"
	"github.com/tabwork/hwcore/internal/videomode"
)

// OV2710 register map, as far as this driver touches it.
const (
	regChipID  uint16 = 0x300a // two bytes, reads 0x2710
	regSysCtrl uint16 = 0x3008
	regAEC     uint16 = 0x3503
	regGain    uint16 = 0x350a // two bytes
	regExpo    uint16 = 0x3500 // three bytes, value is exposure << 4
	regFormat1 uint16 = 0x3820 // vertical flip in bit 2
	regFormat2 uint16 = 0x3821 // horizontal flip in bit 2
	regISP0    uint16 = 0x5080
)

const (
	chipID = 0x2710

	sysSoftReset uint8 = 0x80
	sysRun       uint8 = 0x02 // release from standby, streaming
	sysStandby   uint8 = 0x42

	aecManualExposure uint8 = 0x01
	aecManualGain     uint8 = 0x02

	flipBit uint8 = 0x04

	patternEnable uint8 = 0x80
	patternSelect uint8 = 0x03
)

// Control value limits. Gain is the 10-bit PK gain register; exposure
// is the 20-bit line-count register shifted down by its four fraction
// bits.
const (
	MaxGain     = 0x3ff
	MaxExposure = 0xffff
)

// setting720p60 programs 1280x720 at 60 fps.
var setting720p60 = []regio.Reg{
	{Addr: 0x3103, Val: 0x93}, {Addr: 0x3008, Val: 0x82}, {Addr: 0x3008, Val: 0x42}, {Addr: 0x3017, Val: 0x7f},
	{Addr: 0x3018, Val: 0xfc}, {Addr: 0x3706, Val: 0x61}, {Addr: 0x3712, Val: 0x0c}, {Addr: 0x3630, Val: 0x6d},
	{Addr: 0x3801, Val: 0xb4}, {Addr: 0x3621, Val: 0x04}, {Addr: 0x3604, Val: 0x60}, {Addr: 0x3603, Val: 0xa7},
	{Addr: 0x3631, Val: 0x26}, {Addr: 0x3600, Val: 0x04}, {Addr: 0x3620, Val: 0x37}, {Addr: 0x3623, Val: 0x00},
	{Addr: 0x3702, Val: 0x9e}, {Addr: 0x3703, Val: 0x5c}, {Addr: 0x3704, Val: 0x40}, {Addr: 0x370d, Val: 0x0f},
	{Addr: 0x3713, Val: 0x9f}, {Addr: 0x3714, Val: 0x4c}, {Addr: 0x3710, Val: 0x9e}, {Addr: 0x3801, Val: 0xc4},
	{Addr: 0x3605, Val: 0x05}, {Addr: 0x3606, Val: 0x3f}, {Addr: 0x302d, Val: 0x90}, {Addr: 0x370b, Val: 0x40},
	{Addr: 0x3716, Val: 0x31}, {Addr: 0x3707, Val: 0x52}, {Addr: 0x380d, Val: 0x74}, {Addr: 0x5181, Val: 0x20},
	{Addr: 0x518f, Val: 0x00}, {Addr: 0x4301, Val: 0xff}, {Addr: 0x4303, Val: 0x00}, {Addr: 0x3a00, Val: 0x78},
	{Addr: 0x300f, Val: 0x88}, {Addr: 0x3011, Val: 0x28}, {Addr: 0x3a1a, Val: 0x06}, {Addr: 0x3a18, Val: 0x00},
	{Addr: 0x3a19, Val: 0x7a}, {Addr: 0x3a13, Val: 0x54}, {Addr: 0x382e, Val: 0x0f}, {Addr: 0x381a, Val: 0x1a},
	{Addr: 0x401d, Val: 0x02}, {Addr: 0x381c, Val: 0x10}, {Addr: 0x381d, Val: 0xb0}, {Addr: 0x381e, Val: 0x02},
	{Addr: 0x381f, Val: 0xec}, {Addr: 0x3800, Val: 0x01}, {Addr: 0x3820, Val: 0x0a}, {Addr: 0x3821, Val: 0x2a},
	{Addr: 0x3804, Val: 0x05}, {Addr: 0x3805, Val: 0x10}, {Addr: 0x3802, Val: 0x00}, {Addr: 0x3803, Val: 0x04},
	{Addr: 0x3806, Val: 0x02}, {Addr: 0x3807, Val: 0xe0}, {Addr: 0x3808, Val: 0x05}, {Addr: 0x3809, Val: 0x10},
	{Addr: 0x380a, Val: 0x02}, {Addr: 0x380b, Val: 0xe0}, {Addr: 0x380e, Val: 0x02}, {Addr: 0x380f, Val: 0xf0},
	{Addr: 0x380c, Val: 0x07}, {Addr: 0x380d, Val: 0x00}, {Addr: 0x3810, Val: 0x10}, {Addr: 0x3811, Val: 0x06},
	{Addr: 0x5688, Val: 0x03}, {Addr: 0x5684, Val: 0x05}, {Addr: 0x5685, Val: 0x00}, {Addr: 0x5686, Val: 0x02},
	{Addr: 0x5687, Val: 0xd0}, {Addr: 0x3a08, Val: 0x1b}, {Addr: 0x3a09, Val: 0xe6}, {Addr: 0x3a0a, Val: 0x17},
	{Addr: 0x3a0b, Val: 0x40}, {Addr: 0x3a0e, Val: 0x01}, {Addr: 0x3a0d, Val: 0x02}, {Addr: 0x3011, Val: 0x0a},
	{Addr: 0x300f, Val: 0x8a}, {Addr: 0x3017, Val: 0x00}, {Addr: 0x3018, Val: 0x00}, {Addr: 0x4800, Val: 0x24},
	{Addr: 0x300e, Val: 0x04}, {Addr: 0x4801, Val: 0x0f}, {Addr: 0x300f, Val: 0xc3}, {Addr: 0x3a0f, Val: 0x40},
	{Addr: 0x3a10, Val: 0x38}, {Addr: 0x3a1b, Val: 0x48}, {Addr: 0x3a1e, Val: 0x30}, {Addr: 0x3a11, Val: 0x90},
	{Addr: 0x3a1f, Val: 0x10}, {Addr: 0x3010, Val: 0x10}, {Addr: 0x3a0e, Val: 0x02}, {Addr: 0x3a0d, Val: 0x03},
	{Addr: 0x3a08, Val: 0x0d}, {Addr: 0x3a09, Val: 0xf3}, {Addr: 0x3a0a, Val: 0x0b}, {Addr: 0x3a0b, Val: 0xa0},
	{Addr: 0x300f, Val: 0xc3}, {Addr: 0x3011, Val: 0x0e}, {Addr: 0x3012, Val: 0x02}, {Addr: 0x380c, Val: 0x07},
	{Addr: 0x380d, Val: 0x6a}, {Addr: 0x3703, Val: 0x5c}, {Addr: 0x3704, Val: 0x40}, {Addr: 0x3801, Val: 0xbc},
	{Addr: 0x3503, Val: 0x17}, {Addr: 0x3500, Val: 0x00}, {Addr: 0x3501, Val: 0x00}, {Addr: 0x3502, Val: 0x00},
	{Addr: 0x350a, Val: 0x00}, {Addr: 0x350b, Val: 0x00}, {Addr: 0x5001, Val: 0x4e}, {Addr: 0x5000, Val: 0x5f},
	{Addr: 0x3008, Val: 0x02},
}

// setting1080p30 programs 1920x1080 at 30 fps. It doubles as the
// post-reset init sequence.
var setting1080p30 = []regio.Reg{
	{Addr: 0x3103, Val: 0x93}, {Addr: 0x3008, Val: 0x82}, {Addr: 0x3008, Val: 0x42}, {Addr: 0x3017, Val: 0x7f},
	{Addr: 0x3018, Val: 0xfc}, {Addr: 0x3706, Val: 0x61}, {Addr: 0x3712, Val: 0x0c}, {Addr: 0x3630, Val: 0x6d},
	{Addr: 0x3801, Val: 0xb4}, {Addr: 0x3621, Val: 0x04}, {Addr: 0x3604, Val: 0x60}, {Addr: 0x3603, Val: 0xa7},
	{Addr: 0x3631, Val: 0x26}, {Addr: 0x3600, Val: 0x04}, {Addr: 0x3620, Val: 0x37}, {Addr: 0x3623, Val: 0x00},
	{Addr: 0x3702, Val: 0x9e}, {Addr: 0x3703, Val: 0x5c}, {Addr: 0x3704, Val: 0x40}, {Addr: 0x370d, Val: 0x0f},
	{Addr: 0x3713, Val: 0x9f}, {Addr: 0x3714, Val: 0x4c}, {Addr: 0x3710, Val: 0x9e}, {Addr: 0x3801, Val: 0xc4},
	{Addr: 0x3605, Val: 0x05}, {Addr: 0x3606, Val: 0x3f}, {Addr: 0x302d, Val: 0x90}, {Addr: 0x370b, Val: 0x40},
	{Addr: 0x3716, Val: 0x31}, {Addr: 0x3707, Val: 0x52}, {Addr: 0x380d, Val: 0x74}, {Addr: 0x5181, Val: 0x20},
	{Addr: 0x518f, Val: 0x00}, {Addr: 0x4301, Val: 0xff}, {Addr: 0x4303, Val: 0x00}, {Addr: 0x3a00, Val: 0x78},
	{Addr: 0x300f, Val: 0x88}, {Addr: 0x3011, Val: 0x28}, {Addr: 0x3a1a, Val: 0x06}, {Addr: 0x3a18, Val: 0x00},
	{Addr: 0x3a19, Val: 0x7a}, {Addr: 0x3a13, Val: 0x54}, {Addr: 0x382e, Val: 0x0f}, {Addr: 0x381a, Val: 0x1a},
	{Addr: 0x401d, Val: 0x02}, {Addr: 0x381c, Val: 0x00}, {Addr: 0x381d, Val: 0x02}, {Addr: 0x381e, Val: 0x04},
	{Addr: 0x381f, Val: 0x38}, {Addr: 0x3820, Val: 0x00}, {Addr: 0x3821, Val: 0x98}, {Addr: 0x3800, Val: 0x01},
	{Addr: 0x3802, Val: 0x00}, {Addr: 0x3803, Val: 0x0a}, {Addr: 0x3804, Val: 0x07}, {Addr: 0x3805, Val: 0x90},
	{Addr: 0x3806, Val: 0x04}, {Addr: 0x3807, Val: 0x40}, {Addr: 0x3808, Val: 0x07}, {Addr: 0x3809, Val: 0x90},
	{Addr: 0x380a, Val: 0x04}, {Addr: 0x380b, Val: 0x40}, {Addr: 0x380e, Val: 0x04}, {Addr: 0x380f, Val: 0x50},
	{Addr: 0x380c, Val: 0x09}, {Addr: 0x380d, Val: 0x74}, {Addr: 0x3810, Val: 0x08}, {Addr: 0x3811, Val: 0x02},
	{Addr: 0x5688, Val: 0x03}, {Addr: 0x5684, Val: 0x07}, {Addr: 0x5685, Val: 0xa0}, {Addr: 0x5686, Val: 0x04},
	{Addr: 0x5687, Val: 0x43}, {Addr: 0x3011, Val: 0x0a}, {Addr: 0x300f, Val: 0x8a}, {Addr: 0x3017, Val: 0x00},
	{Addr: 0x3018, Val: 0x00}, {Addr: 0x4800, Val: 0x24}, {Addr: 0x300e, Val: 0x04}, {Addr: 0x4801, Val: 0x0f},
	{Addr: 0x300f, Val: 0xc3}, {Addr: 0x3010, Val: 0x00}, {Addr: 0x3011, Val: 0x0a}, {Addr: 0x3012, Val: 0x01},
	{Addr: 0x3a0f, Val: 0x40}, {Addr: 0x3a10, Val: 0x38}, {Addr: 0x3a1b, Val: 0x48}, {Addr: 0x3a1e, Val: 0x30},
	{Addr: 0x3a11, Val: 0x90}, {Addr: 0x3a1f, Val: 0x10}, {Addr: 0x3a0e, Val: 0x03}, {Addr: 0x3a0d, Val: 0x04},
	{Addr: 0x3a08, Val: 0x14}, {Addr: 0x3a09, Val: 0xc0}, {Addr: 0x3a0a, Val: 0x11}, {Addr: 0x3a0b, Val: 0x40},
	{Addr: 0x300f, Val: 0xc3}, {Addr: 0x3010, Val: 0x00}, {Addr: 0x3011, Val: 0x0e}, {Addr: 0x3012, Val: 0x02},
	{Addr: 0x380c, Val: 0x09}, {Addr: 0x380d, Val: 0xec}, {Addr: 0x3703, Val: 0x61}, {Addr: 0x3704, Val: 0x44},
	{Addr: 0x3801, Val: 0xd2}, {Addr: 0x3503, Val: 0x17}, {Addr: 0x3500, Val: 0x00}, {Addr: 0x3501, Val: 0x00},
	{Addr: 0x3502, Val: 0x00}, {Addr: 0x350a, Val: 0x00}, {Addr: 0x350b, Val: 0x00}, {Addr: 0x5001, Val: 0x4e},
	{Addr: 0x5000, Val: 0x5f}, {Addr: 0x3008, Val: 0x02},
}

// DefaultModes is the OV2710 mode catalog. The 1080p entry is the
// power-on default.
func DefaultModes() []videomode.Mode {
	return []videomode.Mode{
		{Name: "720p60", Width: 1280, Height: 720, Regs: setting720p60},
		{Name: "1080p30", Width: 1920, Height: 1080, Regs: setting1080p30},
	}
}

// initTable is replayed after every reset before the selected mode is
// committed.
var initTable = setting1080p30
