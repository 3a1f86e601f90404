package at

const (
	// Line framing
	CRLF = "\r\n"
	CR   = "\r"
	LF   = "\n"

	// CommandMarker is written to the terminal log, on a line of its own,
	// before every outbound command.
	CommandMarker = "> "

	// Basic information
	CmdIMEI         = "AT+CGSN"
	CmdIMSI         = "AT+CIMI"
	CmdManufacturer = "AT+GMI"
	CmdModel        = "AT+GMM"
	CmdRevision     = "AT+GMR"
	CmdCapabilities = "AT+GCAP"
	CmdListCommands = "AT+CLAC"

	// Call control
	CmdDial   = "ATD"
	CmdAnswer = "ATA"
	CmdHangUp = "ATH"

	// Supplementary services and equipment control
	CmdFacilityLock       = "AT+CLCK"
	CmdChangePassword     = "AT+CPWD"
	CmdChangePasswordTest = "AT+CPWD=?"
	CmdDTMF               = "AT+VTS"
	CmdFunctionality      = "AT+CFUN"
)
