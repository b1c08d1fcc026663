package bridge

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ResponseMessage is the generic response wrapper of the gRPC transport.
// Message holds a serialized PResult.
type ResponseMessage struct {
	Message []byte
}

// PResultDescriptor describes tracewire.v1.PResult:
//
//	message PResult {
//	  bool success = 1;
//	  string message = 2;
//	}
var PResultDescriptor protoreflect.MessageDescriptor

var pResultSuccess, pResultMessage protoreflect.FieldDescriptor

func init() {
	fileDesc := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("tracewire/v1/result.proto"),
		Package: proto.String("tracewire.v1"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("PResult"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{Name: proto.String("success"), JsonName: proto.String("success"), Number: proto.Int32(1),
						Label: descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
						Type:  descriptorpb.FieldDescriptorProto_TYPE_BOOL.Enum()},
					{Name: proto.String("message"), JsonName: proto.String("message"), Number: proto.Int32(2),
						Label: descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
						Type:  descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum()},
				},
			},
		},
	}
	files, err := protodesc.NewFiles(&descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{fileDesc},
	})
	if err != nil {
		panic("bridge: PResult descriptor: " + err.Error())
	}
	fd, err := files.FindFileByPath("tracewire/v1/result.proto")
	if err != nil {
		panic("bridge: PResult descriptor: " + err.Error())
	}
	PResultDescriptor = fd.Messages().ByName("PResult")
	pResultSuccess = PResultDescriptor.Fields().ByNumber(1)
	pResultMessage = PResultDescriptor.Fields().ByNumber(2)
}

// GRPCResultBridge recognizes ResponseMessage and parses its bytes as a
// PResult.
type GRPCResultBridge struct{}

func NewGRPCResultBridge() GRPCResultBridge { return GRPCResultBridge{} }

func (GRPCResultBridge) Bridge(raw any) (Result, bool, error) {
	var payload []byte
	switch r := raw.(type) {
	case ResponseMessage:
		payload = r.Message
	case *ResponseMessage:
		if r == nil {
			return nil, false, nil
		}
		payload = r.Message
	default:
		return nil, false, nil
	}
	msg := dynamicpb.NewMessage(PResultDescriptor)
	if err := proto.Unmarshal(payload, msg); err != nil {
		return nil, true, &DecodeError{Source: "grpc", Err: err}
	}
	return result{
		success: msg.Get(pResultSuccess).Bool(),
		message: msg.Get(pResultMessage).String(),
	}, true, nil
}

// MarshalPResult encodes a PResult, as a gRPC collector would.
func MarshalPResult(success bool, message string) ([]byte, error) {
	msg := dynamicpb.NewMessage(PResultDescriptor)
	msg.Set(pResultSuccess, protoreflect.ValueOfBool(success))
	msg.Set(pResultMessage, protoreflect.ValueOfString(message))
	return proto.Marshal(msg)
}
