package scheduler

import (
	"fmt"
	"strings"
)

// TaskName is the Windows Task Scheduler entry name.
const TaskName = "UoGLibraryBooker"

const rule = "============================================================"

// SetupInstructions explains how to register a daily run at 12:05 AM with
// the operating system scheduler.
func SetupInstructions(goos, exe, workdir string) string {
	var b strings.Builder
	switch goos {
	case "darwin", "linux":
		cronLine := fmt.Sprintf("5 0 * * * cd %s && %s schedule --run-once", workdir, exe)
		fmt.Fprintf(&b, "\n%s\nCRON SETUP INSTRUCTIONS\n%s\n", rule, rule)
		fmt.Fprintf(&b, "\nTo schedule daily booking at 12:05 AM, add this to your crontab:\n")
		fmt.Fprintf(&b, "\n  %s\n", cronLine)
		fmt.Fprintf(&b, "\nTo edit crontab, run:\n  crontab -e\n")
		fmt.Fprintf(&b, "\nOr to add automatically, run:\n")
		fmt.Fprintf(&b, "  (crontab -l 2>/dev/null; echo %q) | crontab -\n", cronLine)
		fmt.Fprintf(&b, "%s\n", rule)
	case "windows":
		fmt.Fprintf(&b, "\n%s\nWINDOWS TASK SCHEDULER SETUP\n%s\n", rule, rule)
		fmt.Fprintf(&b, "\nRun PowerShell as Administrator and execute:\n\n")
		fmt.Fprintf(&b, "$action = New-ScheduledTaskAction -Execute '\"%s\"' -Argument 'schedule --run-once' -WorkingDirectory '\"%s\"'\n", exe, workdir)
		fmt.Fprintf(&b, "$trigger = New-ScheduledTaskTrigger -Daily -At 12:05AM\n")
		fmt.Fprintf(&b, "$settings = New-ScheduledTaskSettingsSet -StartWhenAvailable -WakeToRun\n")
		fmt.Fprintf(&b, "Register-ScheduledTask -TaskName \"%s\" -Action $action -Trigger $trigger -Settings $settings -Description \"Automatically book UoG library rooms\"\n", TaskName)
		fmt.Fprintf(&b, "%s\n", rule)
	default:
		fmt.Fprintf(&b, "No scheduler instructions for %s. Run \"%s schedule --daemon\" instead.\n", goos, exe)
	}
	return b.String()
}
