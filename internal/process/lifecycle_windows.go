//go:build windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// platformState holds the job object that owns the agent's process tree.
type platformState struct {
	mu  sync.Mutex
	job windows.Handle
}

// setProcAttr starts the agent without a console window, in its own process
// group.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW | syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// createJobObject creates a job object that kills all member processes
// when its last handle is closed.
func createJobObject() (windows.Handle, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return 0, err
	}

	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}

	_, err = windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)
	if err != nil {
		windows.CloseHandle(job)
		return 0, err
	}

	return job, nil
}

// attachPlatform assigns the freshly started agent to a new job object.
func (a *Agent) attachPlatform() error {
	if a.cmd == nil || a.cmd.Process == nil {
		return errors.New("process not started")
	}

	job, err := createJobObject()
	if err != nil {
		return err
	}

	handle, err := windows.OpenProcess(
		windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE,
		false,
		uint32(a.cmd.Process.Pid),
	)
	if err != nil {
		windows.CloseHandle(job)
		return err
	}
	defer windows.CloseHandle(handle)

	if err := windows.AssignProcessToJobObject(job, handle); err != nil {
		windows.CloseHandle(job)
		return err
	}

	a.platform.mu.Lock()
	a.platform.job = job
	a.platform.mu.Unlock()
	return nil
}

// releasePlatform closes the job object handle.
func (a *Agent) releasePlatform() {
	a.platform.mu.Lock()
	defer a.platform.mu.Unlock()
	if a.platform.job != 0 {
		windows.CloseHandle(a.platform.job)
		a.platform.job = 0
	}
}

// killTree terminates the job (the whole tree) or, failing that, the process.
func (a *Agent) killTree(pid int) error {
	a.platform.mu.Lock()
	job := a.platform.job
	var err error
	if job != 0 {
		err = windows.TerminateJobObject(job, 1)
	}
	a.platform.mu.Unlock()
	if job != 0 && err == nil {
		return nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

// isNoSuchProcess returns true if the error indicates the process is gone.
func isNoSuchProcess(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, windows.ERROR_INVALID_PARAMETER) || errors.Is(err, syscall.EINVAL) {
		return true
	}
	return os.IsNotExist(err) || errors.Is(err, os.ErrProcessDone)
}
