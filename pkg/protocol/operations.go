package protocol

import "strconv"

// Operation identifies the inner message type carried by an envelope.
// Numbering follows the bridge firmware.
type Operation uint32

const (
	OpNoOperation               Operation = 0
	OpSetAddressRequest         Operation = 1
	OpRegisterAppRequest        Operation = 2
	OpStartSessionRequest       Operation = 3
	OpCloseSessionRequest       Operation = 4
	OpListRegisteredAppsRequest Operation = 5
	OpDeregisterAppRequest      Operation = 6
	OpChangePinRequest          Operation = 7
	OpVersionRequest            Operation = 18

	OpCnTimeRequest       Operation = 30
	OpCnTimeConfirm       Operation = 31
	OpCnNodeNotification  Operation = 32
	OpCnRmiRequest        Operation = 33
	OpCnRmiResponse       Operation = 34
	OpCnRmiAsyncRequest   Operation = 35
	OpCnRmiAsyncConfirm   Operation = 36
	OpCnRmiAsyncResponse  Operation = 37
	OpCnRpdoRequest       Operation = 38
	OpCnRpdoConfirm       Operation = 39
	OpCnRpdoNotification  Operation = 40
	OpCnAlarmNotification Operation = 41

	OpSetAddressConfirm         Operation = 51
	OpRegisterAppConfirm        Operation = 52
	OpStartSessionConfirm       Operation = 53
	OpCloseSessionConfirm       Operation = 54
	OpListRegisteredAppsConfirm Operation = 55
	OpDeregisterAppConfirm      Operation = 56
	OpChangePinConfirm          Operation = 57
	OpVersionConfirm            Operation = 68

	OpGatewayNotification      Operation = 100
	OpKeepAlive                Operation = 101
	OpFactoryReset             Operation = 102
	OpCloseSessionNotification Operation = 103
)

var operationNames = map[Operation]string{
	OpNoOperation:               "NoOperation",
	OpSetAddressRequest:         "SetAddressRequest",
	OpRegisterAppRequest:        "RegisterAppRequest",
	OpStartSessionRequest:       "StartSessionRequest",
	OpCloseSessionRequest:       "CloseSessionRequest",
	OpListRegisteredAppsRequest: "ListRegisteredAppsRequest",
	OpDeregisterAppRequest:      "DeregisterAppRequest",
	OpChangePinRequest:          "ChangePinRequest",
	OpVersionRequest:            "VersionRequest",
	OpCnTimeRequest:             "CnTimeRequest",
	OpCnTimeConfirm:             "CnTimeConfirm",
	OpCnNodeNotification:        "CnNodeNotification",
	OpCnRmiRequest:              "CnRmiRequest",
	OpCnRmiResponse:             "CnRmiResponse",
	OpCnRmiAsyncRequest:         "CnRmiAsyncRequest",
	OpCnRmiAsyncConfirm:         "CnRmiAsyncConfirm",
	OpCnRmiAsyncResponse:        "CnRmiAsyncResponse",
	OpCnRpdoRequest:             "CnRpdoRequest",
	OpCnRpdoConfirm:             "CnRpdoConfirm",
	OpCnRpdoNotification:        "CnRpdoNotification",
	OpCnAlarmNotification:       "CnAlarmNotification",
	OpSetAddressConfirm:         "SetAddressConfirm",
	OpRegisterAppConfirm:        "RegisterAppConfirm",
	OpStartSessionConfirm:       "StartSessionConfirm",
	OpCloseSessionConfirm:       "CloseSessionConfirm",
	OpListRegisteredAppsConfirm: "ListRegisteredAppsConfirm",
	OpDeregisterAppConfirm:      "DeregisterAppConfirm",
	OpChangePinConfirm:          "ChangePinConfirm",
	OpVersionConfirm:            "VersionConfirm",
	OpGatewayNotification:       "GatewayNotification",
	OpKeepAlive:                 "KeepAlive",
	OpFactoryReset:              "FactoryReset",
	OpCloseSessionNotification:  "CloseSessionNotification",
}

func (op Operation) String() string {
	if name, ok := operationNames[op]; ok {
		return name
	}
	return "Operation(" + strconv.FormatUint(uint64(op), 10) + ")"
}

// replyOperations maps every request operation to the single reply
// operation the bridge answers it with. The session uses this to
// validate correlated replies.
var replyOperations = map[Operation]Operation{
	OpSetAddressRequest:         OpSetAddressConfirm,
	OpRegisterAppRequest:        OpRegisterAppConfirm,
	OpStartSessionRequest:       OpStartSessionConfirm,
	OpCloseSessionRequest:       OpCloseSessionConfirm,
	OpListRegisteredAppsRequest: OpListRegisteredAppsConfirm,
	OpDeregisterAppRequest:      OpDeregisterAppConfirm,
	OpChangePinRequest:          OpChangePinConfirm,
	OpVersionRequest:            OpVersionConfirm,
	OpCnTimeRequest:             OpCnTimeConfirm,
	OpCnRmiRequest:              OpCnRmiResponse,
	OpCnRmiAsyncRequest:         OpCnRmiAsyncConfirm,
	OpCnRpdoRequest:             OpCnRpdoConfirm,
}

// Reply returns the operation type the bridge replies with, and whether
// the operation expects a reply at all.
func (op Operation) Reply() (Operation, bool) {
	reply, ok := replyOperations[op]
	return reply, ok
}

// Result is the status code carried by confirm envelopes.
type Result uint32

const (
	ResultOk            Result = 0
	ResultBadRequest    Result = 1
	ResultInternalError Result = 2
	ResultNotReachable  Result = 3
	ResultOtherSession  Result = 4
	ResultNotAllowed    Result = 5
	ResultNoResources   Result = 6
	ResultNotExist      Result = 7
	ResultRmiError      Result = 8
)

var resultNames = map[Result]string{
	ResultOk:            "OK",
	ResultBadRequest:    "BAD_REQUEST",
	ResultInternalError: "INTERNAL_ERROR",
	ResultNotReachable:  "NOT_REACHABLE",
	ResultOtherSession:  "OTHER_SESSION",
	ResultNotAllowed:    "NOT_ALLOWED",
	ResultNoResources:   "NO_RESOURCES",
	ResultNotExist:      "NOT_EXIST",
	ResultRmiError:      "RMI_ERROR",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "Result(" + strconv.FormatUint(uint64(r), 10) + ")"
}
