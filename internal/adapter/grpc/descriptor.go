package grpc

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtoFile is the descriptor path the service is registered under
const ProtoFile = "ledger/v1/ledger.proto"

// The service has no generated code, so its file descriptor is assembled from
// LedgerServiceDesc and registered globally for server reflection.
func init() {
	fd, err := ledgerFileDescriptor(protoregistry.GlobalFiles)
	if err != nil {
		panic(err)
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(err)
	}
}

func ledgerFileDescriptor(resolver protodesc.Resolver) (protoreflect.FileDescriptor, error) {
	message := (&structpb.Struct{}).ProtoReflect().Descriptor()
	messageName := "." + string(message.FullName())

	methods := make([]*descriptorpb.MethodDescriptorProto, 0, len(LedgerServiceDesc.Methods))
	for _, m := range LedgerServiceDesc.Methods {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.MethodName),
			InputType:  proto.String(messageName),
			OutputType: proto.String(messageName),
		})
	}

	return protodesc.NewFile(&descriptorpb.FileDescriptorProto{
		Name:       proto.String(ProtoFile),
		Package:    proto.String("ledger.v1"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{message.ParentFile().Path()},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("LedgerService"),
			Method: methods,
		}},
	}, resolver)
}
