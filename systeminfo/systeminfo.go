// Package systeminfo records the host a scan ran on. Filesystem type matters
// for reading the timeline: FAT and many network mounts carry no birth time,
// so a missing "Created Date" there says nothing about the file.
package systeminfo

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"metarisk/config"
	"metarisk/logger"
)

type SystemInfo struct {
	Hostname        string       `json:"hostname,omitempty"`
	OS              string       `json:"os"`
	Platform        string       `json:"platform,omitempty"`
	PlatformVersion string       `json:"platform_version,omitempty"`
	KernelVersion   string       `json:"kernel_version,omitempty"`
	Arch            string       `json:"arch"`
	CPUCount        int          `json:"cpu_count,omitempty"`
	MemoryTotal     uint64       `json:"memory_total,omitempty"`
	BootTime        string       `json:"boot_time,omitempty"`
	Timezone        string       `json:"timezone"`
	Volumes         []VolumeInfo `json:"volumes,omitempty"`
}

// VolumeInfo describes the filesystem holding one start path.
type VolumeInfo struct {
	Path       string  `json:"path"`
	Fstype     string  `json:"fstype,omitempty"`
	Total      uint64  `json:"total,omitempty"`
	Free       uint64  `json:"free,omitempty"`
	UsedPercent float64 `json:"used_percent,omitempty"`
}

func GetSystemInfo(cfg *config.Config) (*SystemInfo, error) {
	zone, _ := time.Now().Zone()
	sysInfo := &SystemInfo{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		Timezone: zone,
	}
	if cfg == nil || !cfg.CollectSystemInfo {
		return sysInfo, nil
	}

	if err := gatherHost(sysInfo); err != nil {
		logger.Warnf("Failed to gather host information: %v", err)
	}
	if count, err := cpu.Counts(true); err == nil {
		sysInfo.CPUCount = count
	} else {
		logger.Debugf("Failed to count CPUs: %v", err)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		sysInfo.MemoryTotal = vm.Total
	} else {
		logger.Debugf("Failed to read memory totals: %v", err)
	}
	for _, path := range cfg.StartPaths {
		usage, err := disk.Usage(path)
		if err != nil {
			logger.Debugf("Failed to read volume for %s: %v", path, err)
			continue
		}
		sysInfo.Volumes = append(sysInfo.Volumes, VolumeInfo{
			Path:       path,
			Fstype:     usage.Fstype,
			Total:      usage.Total,
			Free:       usage.Free,
			UsedPercent: usage.UsedPercent,
		})
	}
	return sysInfo, nil
}

func gatherHost(sysInfo *SystemInfo) error {
	info, err := host.Info()
	if err != nil {
		return err
	}
	sysInfo.Hostname = info.Hostname
	if info.OS != "" {
		sysInfo.OS = info.OS
	}
	sysInfo.Platform = info.Platform
	sysInfo.PlatformVersion = info.PlatformVersion
	sysInfo.KernelVersion = info.KernelVersion
	if info.BootTime > 0 {
		sysInfo.BootTime = time.Unix(int64(info.BootTime), 0).UTC().Format(time.RFC3339)
	}
	return nil
}
